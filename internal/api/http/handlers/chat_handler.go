package handlers

import (
	"io"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/support-assistant/internal/api/dto"
	"github.com/spec-kit/support-assistant/internal/auth"
	"github.com/spec-kit/support-assistant/internal/domain"
	"github.com/spec-kit/support-assistant/internal/service"
	apperrors "github.com/spec-kit/support-assistant/pkg/util"
)

// ChatHandler exposes the conversation engine over HTTP.
type ChatHandler struct {
	conversations *service.ConversationService
	tokens        *auth.TokenManager
}

// NewChatHandler constructs handler.
func NewChatHandler(conversations *service.ConversationService, tokens *auth.TokenManager) *ChatHandler {
	return &ChatHandler{conversations: conversations, tokens: tokens}
}

// StartSession POST /session.
func (h *ChatHandler) StartSession(c *fiber.Ctx) error {
	sess, err := h.conversations.StartSession(c.Context())
	if err != nil {
		return err
	}
	token, expiresAt, err := h.tokens.GenerateToken(sess.ID)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.StartSessionResponse{
		SessionID: sess.ID,
		Token:     token,
		ExpiresAt: expiresAt,
		Messages:  dto.FromMessages(sess.Transcript),
	}})
}

// SendMessage POST /chat/message.
func (h *ChatHandler) SendMessage(c *fiber.Ctx) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	var req dto.SendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}

	sess, err := h.conversations.HandleInput(c.Context(), sessionID, req.Text)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSession(sess)})
}

// SendAction POST /chat/action.
func (h *ChatHandler) SendAction(c *fiber.Ctx) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	var req dto.ActionRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Action == "" {
		return apperrors.NewValidationError("action required", nil)
	}

	sess, err := h.conversations.HandleAction(c.Context(), sessionID, domain.ActionTag(req.Action))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSession(sess)})
}

// UploadAttachment POST /chat/attachment.
func (h *ChatHandler) UploadAttachment(c *fiber.Ctx) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		return apperrors.NewValidationError("file required", nil)
	}

	file, err := fileHeader.Open()
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}
	defer file.Close()
	data, err := io.ReadAll(io.LimitReader(file, domain.MaxAttachmentBytes+1))
	if err != nil {
		return apperrors.NewValidationError("unreadable file", nil)
	}

	att := domain.Attachment{
		Name:      fileHeader.Filename,
		SizeBytes: fileHeader.Size,
		MimeType:  fileHeader.Header.Get("Content-Type"),
		Data:      data,
	}
	sess, err := h.conversations.HandleAttachment(c.Context(), sessionID, att)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSession(sess)})
}

// Reset POST /chat/reset.
func (h *ChatHandler) Reset(c *fiber.Ctx) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	sess, err := h.conversations.Reset(c.Context(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSession(sess)})
}

// Transcript GET /chat/transcript.
func (h *ChatHandler) Transcript(c *fiber.Ctx) error {
	sessionID, ok := auth.SessionIDFromContext(c)
	if !ok {
		return apperrors.NewUnauthorized("session required")
	}
	sess, err := h.conversations.Transcript(c.Context(), sessionID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.FromSession(sess)})
}
