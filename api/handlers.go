package api

import (
	"chat-backend/domain"
	"chat-backend/services"
	"log/slog"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/samber/lo"
)

var validate = validator.New()

// Handler exposes the chat and message operations over HTTP.
type Handler struct {
	log      *slog.Logger
	chats    *services.ChatService
	messages *services.MessageService
}

func NewHandler(log *slog.Logger, chats *services.ChatService, messages *services.MessageService) *Handler {
	return &Handler{log: log, chats: chats, messages: messages}
}

func (h *Handler) SetupRoutes(app *fiber.App, requireUser fiber.Handler) {
	chats := app.Group("/chats")
	chats.Use(requireUser)
	chats.Post("/", h.CreateChat)
	chats.Get("/get-chats", h.GetChats)
	chats.Post("/update-chat-related-user", h.UpdateChatRelatedUser)

	messages := app.Group("/messages")
	messages.Use(requireUser)
	messages.Get("/get-messages", h.GetMessages)
}

type createChatRequest struct {
	UserIDs []int64 `json:"user_ids" validate:"required,min=1"`
}

type chatResponse struct {
	ID           string               `json:"id"`
	RelatedUsers []domain.RelatedUser `json:"related_users"`
}

func (h *Handler) CreateChat(c fiber.Ctx) error {
	var request createChatRequest
	if err := c.Bind().Body(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	chat, err := h.chats.CreateChat(c.Context(), requestUserID(c), request.UserIDs)
	if err != nil {
		return err
	}
	return c.JSON(chatResponse{ID: chat.ID, RelatedUsers: chat.RelatedUsers})
}

func (h *Handler) GetChats(c fiber.Ctx) error {
	chats, err := h.chats.GetChats(c.Context(), requestUserID(c))
	if err != nil {
		return err
	}
	return c.JSON(lo.Map(chats, func(chat domain.Chat, _ int) chatResponse {
		return chatResponse{ID: chat.ID, RelatedUsers: chat.RelatedUsers}
	}))
}

type updateRelatedUserRequest struct {
	ID        int64  `json:"id" validate:"required"`
	Username  string `json:"username" validate:"required,min=4"`
	Email     string `json:"email" validate:"required,email"`
	AvatarURL string `json:"avatar_url"`
}

func (h *Handler) UpdateChatRelatedUser(c fiber.Ctx) error {
	var request updateRelatedUserRequest
	if err := c.Bind().Body(&request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body.")
	}
	if err := validate.Struct(request); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	}

	profile := domain.RelatedUser{
		ID:        request.ID,
		Username:  request.Username,
		Email:     request.Email,
		AvatarURL: request.AvatarURL,
	}
	if err := h.chats.UpdateRelatedUser(c.Context(), requestUserID(c), profile); err != nil {
		return err
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) GetMessages(c fiber.Ctx) error {
	chatID := c.Query("chat_id")
	if chatID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "chat_id is required.")
	}

	page, err := h.messages.GetMessages(c.Context(), chatID, requestUserID(c), c.Query("cursor"))
	if err != nil {
		return err
	}
	return c.JSON(page)
}
