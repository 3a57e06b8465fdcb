package errors

// 에러 코드 상수 정의
// 형식: CATEGORY_SPECIFIC_DETAIL
// 프론트엔드에서 이 코드를 기반으로 메시지를 매핑함

const (
	// ==================== 인증 (AUTH_) ====================
	AuthUnauthorized        = "AUTH_UNAUTHORIZED"          // 로그인 필요
	AuthInvalidCredentials  = "AUTH_INVALID_CREDENTIALS"   // 잘못된 이메일/비밀번호
	AuthTokenExpired        = "AUTH_TOKEN_EXPIRED"         // 토큰 만료
	AuthTokenInvalid        = "AUTH_TOKEN_INVALID"         // 잘못된 토큰
	AuthTokenRevoked        = "AUTH_TOKEN_REVOKED"         // 토큰 폐기됨
	AuthEmailAlreadyExists  = "AUTH_EMAIL_EXISTS"          // 이메일 중복
	AuthMagicLinkInvalid    = "AUTH_MAGIC_LINK_INVALID"    // 로그인 링크 만료/사용됨
	AuthSocialLoginFailed   = "AUTH_SOCIAL_LOGIN_FAILED"   // LINE 로그인 실패
	AuthSocialLoginDisabled = "AUTH_SOCIAL_LOGIN_DISABLED" // LINE 로그인 미설정

	// ==================== 검증 (VALIDATION_) ====================
	ValidationInvalidInput = "VALIDATION_INVALID_INPUT" // 잘못된 입력
	ValidationInvalidID    = "VALIDATION_INVALID_ID"    // 잘못된 ID
	ValidationRequired     = "VALIDATION_REQUIRED"      // 필수 항목

	// ==================== 리소스 (RESOURCE_) ====================
	ResourceNotFound      = "RESOURCE_NOT_FOUND"      // 리소스 없음
	ResourceAlreadyExists = "RESOURCE_ALREADY_EXISTS" // 이미 존재

	// ==================== 장바구니 (CART_) ====================
	CartStorageFailed   = "CART_STORAGE_FAILED"    // 장바구니 저장소 오류
	CartExceedsStock    = "CART_EXCEEDS_STOCK"     // 재고 초과
	CartInvalidItem     = "CART_INVALID_ITEM"      // 잘못된 상품 정보
	CartInvalidQuantity = "CART_INVALID_QUANTITY"  // 잘못된 수량
	CartOutOfStock      = "CART_OUT_OF_STOCK"      // 품절
	CartVariantRequired = "CART_VARIANT_REQUIRED"  // 옵션 선택 필요
	CartVariantNotFound = "CART_VARIANT_NOT_FOUND" // 옵션 없음

	// ==================== 결제 단계 (CHECKOUT_) ====================
	CheckoutSessionNotFound   = "CHECKOUT_SESSION_NOT_FOUND"  // 세션 없음/만료
	CheckoutEmptyCart         = "CHECKOUT_EMPTY_CART"         // 빈 장바구니
	CheckoutInvalidTransition = "CHECKOUT_INVALID_TRANSITION" // 잘못된 단계 이동

	// ==================== 상품 (CATALOG_) ====================
	CatalogProductNotFound = "CATALOG_PRODUCT_NOT_FOUND" // 상품 없음
	CatalogUnavailable     = "CATALOG_UNAVAILABLE"       // 상품 API 장애

	// ==================== 위시리스트 (WISHLIST_) ====================
	WishlistNotFound = "WISHLIST_NOT_FOUND" // 요청 없음

	// ==================== 파일 (FILE_) ====================
	FileInvalidType = "FILE_INVALID_TYPE" // 허용되지 않는 파일 형식

	// ==================== 서버 (INTERNAL_) ====================
	InternalServerError = "INTERNAL_SERVER_ERROR" // 서버 오류
	InternalDatabase    = "INTERNAL_DATABASE"     // 데이터베이스 오류
	InternalExternalAPI = "INTERNAL_EXTERNAL_API" // 외부 API 오류
)
