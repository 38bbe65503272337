package webchat

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/totalhomes/lead-qualifier/internal/conversation"
	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// ErrorResponse is the body of every failed chat request.
type ErrorResponse struct {
	Code         string `json:"error"`
	Message      string `json:"message"`
	Retryable    bool   `json:"retryable"`
	RetryAfterMS int64  `json:"retry_after_ms,omitempty"`
}

var retryMessages = map[qualify.Language]string{
	qualify.LanguageSpanish: "Ha habido un problema al procesar tu mensaje. ¿Puedes enviarlo de nuevo?",
	qualify.LanguageEnglish: "Something went wrong while processing your message. Could you send it again?",
	qualify.LanguageCatalan: "Hi ha hagut un problema en processar el teu missatge. El pots tornar a enviar?",
}

var cooldownMessages = map[qualify.Language]string{
	qualify.LanguageSpanish: "Espera %d segundos antes de enviar otro mensaje.",
	qualify.LanguageEnglish: "Please wait %d seconds before sending another message.",
	qualify.LanguageCatalan: "Espera %d segons abans d'enviar un altre missatge.",
}

// classify maps a session error to a status code and a body the widget can show.
func classify(err error, lang qualify.Language) (int, ErrorResponse) {
	var cooldown *conversation.CooldownError
	switch {
	case errors.As(err, &cooldown):
		return http.StatusTooManyRequests, ErrorResponse{
			Code:         "cooldown",
			Message:      fmt.Sprintf(localized(cooldownMessages, lang), cooldown.Seconds()),
			Retryable:    true,
			RetryAfterMS: cooldown.Remaining.Milliseconds(),
		}
	case errors.Is(err, conversation.ErrBackendTimeout):
		return http.StatusGatewayTimeout, retryable("backend_timeout", lang)
	case errors.Is(err, conversation.ErrMalformedResponse):
		return http.StatusBadGateway, retryable("malformed_response", lang)
	case errors.Is(err, conversation.ErrBackendRateLimited):
		return http.StatusServiceUnavailable, retryable("backend_rate_limited", lang)
	case errors.Is(err, conversation.ErrSessionNotFound):
		return http.StatusNotFound, ErrorResponse{Code: "session_not_found", Message: "session not found"}
	case errors.Is(err, conversation.ErrSessionClosed):
		return http.StatusConflict, ErrorResponse{Code: "session_closed", Message: "this conversation has ended"}
	case errors.Is(err, conversation.ErrTurnInProgress):
		return http.StatusConflict, ErrorResponse{Code: "turn_in_progress", Message: "a message is still being processed", Retryable: true}
	case errors.Is(err, conversation.ErrEmptyUtterance):
		return http.StatusBadRequest, ErrorResponse{Code: "empty_message", Message: "message text is required"}
	default:
		return http.StatusInternalServerError, ErrorResponse{Code: "internal", Message: localized(retryMessages, lang), Retryable: true}
	}
}

func retryable(code string, lang qualify.Language) ErrorResponse {
	return ErrorResponse{Code: code, Message: localized(retryMessages, lang), Retryable: true}
}

func localized(messages map[qualify.Language]string, lang qualify.Language) string {
	if m, ok := messages[lang]; ok {
		return m
	}
	return messages[qualify.DefaultLanguage]
}
