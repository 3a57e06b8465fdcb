package scheduler

import (
	"time"

	"github.com/kikichoice/storefront-backend/pkg/logger"
	"github.com/robfig/cron/v3"
)

// SessionSweeper drops checkout sessions inactive since before now minus its TTL.
type SessionSweeper interface {
	Sweep(now time.Time) int
}

// CartEvictor drops in-memory cart containers unused since cutoff.
type CartEvictor interface {
	EvictIdle(cutoff time.Time) int
}

// MagicLinkPurger deletes sign-in links that expired before now.
type MagicLinkPurger interface {
	DeleteExpired(now time.Time) (int64, error)
}

// CheckoutSweeper 만료된 결제 세션, 유휴 장바구니, 로그인 링크 정리 스케줄러
type CheckoutSweeper struct {
	cron       *cron.Cron
	spec       string
	idleTTL    time.Duration
	sessions   SessionSweeper
	carts      CartEvictor
	magicLinks MagicLinkPurger
	now        func() time.Time
}

// NewCheckoutSweeper 정리 스케줄러 생성. magicLinks는 nil 가능
func NewCheckoutSweeper(spec string, idleTTL time.Duration, sessions SessionSweeper, carts CartEvictor, magicLinks MagicLinkPurger) *CheckoutSweeper {
	return &CheckoutSweeper{
		cron:       cron.New(),
		spec:       spec,
		idleTTL:    idleTTL,
		sessions:   sessions,
		carts:      carts,
		magicLinks: magicLinks,
		now:        time.Now,
	}
}

// Start 스케줄러 시작
func (s *CheckoutSweeper) Start() error {
	if _, err := s.cron.AddFunc(s.spec, s.RunOnce); err != nil {
		logger.Error("Failed to add cron job for checkout sweep", err, map[string]interface{}{
			"spec": s.spec,
		})
		return err
	}

	s.cron.Start()
	logger.Info("Checkout sweeper started", map[string]interface{}{
		"spec":     s.spec,
		"idle_ttl": s.idleTTL.String(),
	})
	return nil
}

// RunOnce performs a single sweep.
func (s *CheckoutSweeper) RunOnce() {
	now := s.now()

	sessions := s.sessions.Sweep(now)
	carts := s.carts.EvictIdle(now.Add(-s.idleTTL))

	var links int64
	if s.magicLinks != nil {
		n, err := s.magicLinks.DeleteExpired(now)
		if err != nil {
			logger.Error("Failed to purge expired magic links", err)
		}
		links = n
	}

	if sessions > 0 || carts > 0 || links > 0 {
		logger.Info("Checkout sweep completed", map[string]interface{}{
			"expired_sessions":   sessions,
			"evicted_carts":      carts,
			"purged_magic_links": links,
		})
	}
}

// Stop 스케줄러 중지
func (s *CheckoutSweeper) Stop() {
	logger.Info("Stopping checkout sweeper...")
	<-s.cron.Stop().Done()
	logger.Info("Checkout sweeper stopped")
}
