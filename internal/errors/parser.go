package errors

import (
	"errors"
	"strings"

	"gorm.io/gorm"
)

// ErrorInfo 에러 정보 구조
type ErrorInfo struct {
	Code    string // 에러 코드 (codes.go 참조)
	Message string // 사용자 친화적 메시지
}

// ParseError 에러를 파싱하여 사용자 친화적인 메시지와 코드로 변환
// 보안상 민감한 정보(쿼리, 호스트 등)는 응답에 포함하지 않음
func ParseError(err error, context string) ErrorInfo {
	if err == nil {
		return ErrorInfo{
			Code:    InternalServerError,
			Message: "Something went wrong",
		}
	}

	errStrLower := strings.ToLower(err.Error())

	// 1. GORM 기본 에러
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrorInfo{
			Code:    ResourceNotFound,
			Message: getNotFoundMessage(context),
		}
	}

	// 2. Unique constraint 위반 (postgres 23505, sqlite UNIQUE)
	if strings.Contains(errStrLower, "duplicate key") || strings.Contains(errStrLower, "unique constraint") {
		if strings.Contains(errStrLower, "email") {
			return ErrorInfo{Code: AuthEmailAlreadyExists, Message: "This email is already registered"}
		}
		return ErrorInfo{Code: ResourceAlreadyExists, Message: "This record already exists"}
	}

	// 3. Not null constraint 위반
	if strings.Contains(errStrLower, "not-null constraint") || strings.Contains(errStrLower, "not null constraint") {
		return ErrorInfo{Code: ValidationRequired, Message: "A required field is missing"}
	}

	// 4. 네트워크/연결 에러
	if strings.Contains(errStrLower, "connection refused") ||
		strings.Contains(errStrLower, "no such host") ||
		strings.Contains(errStrLower, "timeout") {
		return ErrorInfo{
			Code:    InternalExternalAPI,
			Message: "A backing service is unreachable. Please try again later",
		}
	}

	// 5. 기본 내부 서버 오류
	return ErrorInfo{
		Code:    InternalServerError,
		Message: getDefaultErrorMessage(context),
	}
}

// getNotFoundMessage context에 따른 Not Found 메시지
func getNotFoundMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "user"):
		return "User not found"
	case strings.Contains(contextLower, "wishlist"):
		return "Wishlist request not found"
	case strings.Contains(contextLower, "product"):
		return "Product not found"
	}
	return "The requested data was not found"
}

// getDefaultErrorMessage context에 따른 기본 에러 메시지
func getDefaultErrorMessage(context string) string {
	contextLower := strings.ToLower(context)

	switch {
	case strings.Contains(contextLower, "create"), strings.Contains(contextLower, "add"):
		return "Could not save. Please try again later"
	case strings.Contains(contextLower, "update"):
		return "Could not update. Please try again later"
	case strings.Contains(contextLower, "delete"), strings.Contains(contextLower, "remove"):
		return "Could not delete. Please try again later"
	}
	return "Something went wrong. Please try again later"
}

// ParseAndRespond 에러를 파싱하여 응답 반환 (controller용 헬퍼)
func ParseAndRespond(c interface{ JSON(int, interface{}) }, statusCode int, err error, context string) {
	errorInfo := ParseError(err, context)
	c.JSON(statusCode, ErrorResponse{
		Error:   errorInfo.Code,
		Message: errorInfo.Message,
	})
}
