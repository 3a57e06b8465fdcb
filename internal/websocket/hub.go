package websocket

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/kikichoice/storefront-backend/internal/app/model"
	"github.com/kikichoice/storefront-backend/pkg/logger"
)

const (
	// Rate limiting: 최대 메시지 수 (1초당)
	maxMessagesPerSecond = 10

	// 장바구니 스냅샷 조회 제한 시간
	snapshotTimeout = 5 * time.Second
)

// 이벤트 타입
const (
	EventCartUpdated  = "cart_updated"  // 다른 탭에서 장바구니 변경
	EventCartSnapshot = "cart_snapshot" // cart_sync 요청에 대한 응답
	EventCartError    = "cart_error"    // 스냅샷 조회 실패

	messageCartSync = "cart_sync"
)

// ClientMessage 클라이언트로부터 받은 메시지
type ClientMessage struct {
	Type string `json:"type"` // cart_sync
}

// CartEvent 클라이언트로 보내는 장바구니 이벤트
type CartEvent struct {
	Type  string          `json:"type"`
	State model.CartState `json:"state"`
}

// SnapshotFunc 프로필의 현재 장바구니 상태 조회
type SnapshotFunc func(ctx context.Context, profileID string) (model.CartState, error)

// Client WebSocket 클라이언트 (브라우저 탭 하나)
type Client struct {
	Hub           *Hub
	Conn          *Conn
	ProfileID     string
	Send          chan []byte
	MessageCount  int       // 최근 1초간 받은 메시지 수
	LastResetTime time.Time // 마지막 카운터 리셋 시간
	RateMu        sync.Mutex

	sendMu sync.Mutex
	closed bool // Send 채널 닫힘 여부 (sendMu 보호)
}

// NewClient 클라이언트 생성
func NewClient(hub *Hub, conn *Conn, profileID string) *Client {
	return &Client{
		Hub:       hub,
		Conn:      conn,
		ProfileID: profileID,
		Send:      make(chan []byte, 64),
	}
}

// trySend Send 채널에 논블로킹 전송. 닫혔거나 버퍼가 가득 차면 false
func (c *Client) trySend(data []byte) bool {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.Send <- data:
		return true
	default:
		return false
	}
}

// closeSend Send 채널을 한 번만 닫음
func (c *Client) closeSend() {
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.Send)
	}
}

// Hub WebSocket 연결 관리자
type Hub struct {
	// 등록된 클라이언트들 (ProfileID -> []*Client - 멀티 탭 지원)
	clients map[string][]*Client

	// 클라이언트 등록
	register chan *Client

	// 클라이언트 등록 해제
	unregister chan *Client

	// 메시지 브로드캐스트
	broadcast chan *BroadcastMessage

	snapshot SnapshotFunc

	mu sync.RWMutex
}

// BroadcastMessage 브로드캐스트 메시지
type BroadcastMessage struct {
	ProfileID string
	Message   []byte
}

// NewHub Hub 생성. snapshot이 nil이면 cart_sync 요청은 무시됨
func NewHub(snapshot SnapshotFunc) *Hub {
	return &Hub{
		clients:    make(map[string][]*Client),
		register:   make(chan *Client, 256),
		unregister: make(chan *Client, 256),
		broadcast:  make(chan *BroadcastMessage, 1024),
		snapshot:   snapshot,
	}
}

// Run Hub 실행
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client.ProfileID] = append(h.clients[client.ProfileID], client)
			sessions := len(h.clients[client.ProfileID])
			h.mu.Unlock()
			logger.Info("WebSocket client registered", map[string]interface{}{
				"profile_id":     client.ProfileID,
				"total_sessions": sessions,
			})

		case client := <-h.unregister:
			h.mu.Lock()
			found := false
			clientList := h.clients[client.ProfileID]
			newList := make([]*Client, 0, len(clientList))
			for _, c := range clientList {
				if c == client {
					found = true
					continue
				}
				newList = append(newList, c)
			}
			if found {
				if len(newList) == 0 {
					delete(h.clients, client.ProfileID)
				} else {
					h.clients[client.ProfileID] = newList
				}
				client.closeSend()
			}
			h.mu.Unlock()
			if found {
				logger.Info("WebSocket client unregistered", map[string]interface{}{
					"profile_id":         client.ProfileID,
					"remaining_sessions": len(newList),
				})
			}

		case message := <-h.broadcast:
			h.mu.RLock()
			for _, client := range h.clients[message.ProfileID] {
				if !client.trySend(message.Message) {
					// Send 채널이 막혀있음 - 비동기로 정리
					go h.Unregister(client)
					logger.Warn("Client send buffer full, disconnecting", map[string]interface{}{
						"profile_id": message.ProfileID,
					})
				}
			}
			h.mu.RUnlock()
		}
	}
}

// NotifyCart 장바구니 변경을 같은 프로필의 모든 탭에 전달
func (h *Hub) NotifyCart(profileID string, state model.CartState) {
	if err := h.SendToProfile(profileID, CartEvent{Type: EventCartUpdated, State: state}); err != nil {
		logger.Error("Failed to broadcast cart update", err, map[string]interface{}{
			"profile_id": profileID,
		})
	}
}

// SendToProfile 특정 프로필의 모든 연결에 메시지 전송
func (h *Hub) SendToProfile(profileID string, message interface{}) error {
	if !h.IsProfileOnline(profileID) {
		return nil
	}

	data, err := json.Marshal(message)
	if err != nil {
		logger.Error("Failed to marshal message", err)
		return err
	}

	select {
	case h.broadcast <- &BroadcastMessage{ProfileID: profileID, Message: data}:
		return nil
	default:
		logger.Warn("Broadcast channel full, message dropped", map[string]interface{}{
			"profile_id": profileID,
		})
		return nil // 메시지 손실 허용 (클라이언트는 cart_sync로 복구)
	}
}

// SetSnapshot cart_sync 응답 소스 설정. Run 이전에 호출
func (h *Hub) SetSnapshot(snapshot SnapshotFunc) {
	h.snapshot = snapshot
}

// Register 클라이언트 등록
func (h *Hub) Register(client *Client) {
	h.register <- client
}

// Unregister 클라이언트 등록 해제
func (h *Hub) Unregister(client *Client) {
	h.unregister <- client
}

// IsProfileOnline 프로필 연결 여부 확인
func (h *Hub) IsProfileOnline(profileID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	_, ok := h.clients[profileID]
	return ok
}

// SessionCount 프로필의 연결 수
func (h *Hub) SessionCount(profileID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[profileID])
}

// HandleClientMessage 클라이언트 메시지 처리
func (h *Hub) HandleClientMessage(client *Client, message []byte) {
	// Rate limiting 체크
	client.RateMu.Lock()
	now := time.Now()
	if now.Sub(client.LastResetTime) >= time.Second {
		client.MessageCount = 0
		client.LastResetTime = now
	}
	client.MessageCount++
	count := client.MessageCount
	client.RateMu.Unlock()

	if count > maxMessagesPerSecond {
		logger.Warn("Rate limit exceeded", map[string]interface{}{
			"profile_id": client.ProfileID,
			"count":      count,
		})
		return
	}

	var msg ClientMessage
	if err := json.Unmarshal(message, &msg); err != nil {
		logger.Warn("Failed to parse client message", map[string]interface{}{
			"profile_id": client.ProfileID,
			"error":      err.Error(),
		})
		return
	}

	if msg.Type == messageCartSync {
		h.sendSnapshot(client)
	}
}

// sendSnapshot 요청한 탭에만 현재 장바구니 전송
func (h *Hub) sendSnapshot(client *Client) {
	if h.snapshot == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	event := CartEvent{Type: EventCartSnapshot}
	state, err := h.snapshot(ctx, client.ProfileID)
	if err != nil {
		event.Type = EventCartError
	}
	event.State = state

	data, err := json.Marshal(event)
	if err != nil {
		logger.Error("Failed to marshal cart snapshot", err)
		return
	}

	if !client.trySend(data) {
		logger.Warn("Client disconnected or send buffer full, snapshot dropped", map[string]interface{}{
			"profile_id": client.ProfileID,
		})
	}
}
