package handler

import (
	"errors"
	"net/http"
	"regexp"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/model"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/service"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/session"
	"github.com/rodrigo-ds4/IndieHoyCommunity/internal/utils"
)

// ChatHandler implements the guided chat intake: a small staged
// conversation that collects email, name and show description one
// message at a time and then feeds the assembled request through the
// same pipeline as the form endpoint. Conversation state lives in the
// session store and expires on inactivity.
type ChatHandler struct {
	Sessions session.Store
	Pipeline *service.DecisionPipeline
}

func NewChatHandler(s session.Store, p *service.DecisionPipeline) *ChatHandler {
	return &ChatHandler{Sessions: s, Pipeline: p}
}

type chatReq struct {
	ConversationID string `json:"conversation_id"` // empty starts a new conversation
	Message        string `json:"message"`
}

type chatResp struct {
	ConversationID string         `json:"conversation_id"`
	Reply          string         `json:"reply"`
	Stage          string         `json:"stage"`
	Outcome        *model.Outcome `json:"outcome,omitempty"`
}

var emailRe = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

// Message advances a conversation by one turn.
func (h *ChatHandler) Message(c echo.Context) error {
	var req chatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	msg := strings.TrimSpace(req.Message)
	ctx := c.Request().Context()

	conv, err := h.loadOrStart(c, req.ConversationID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session error"})
	}
	if conv.Stage == StageGreeting {
		conv.Stage = session.StageEmail
		if err := h.Sessions.Put(ctx, conv); err != nil {
			return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session error"})
		}
		return c.JSON(http.StatusOK, chatResp{
			ConversationID: conv.ID, Stage: conv.Stage,
			Reply: "¡Hola! Soy el asistente de descuentos de IndieHOY. ¿Cuál es tu email de la comunidad?",
		})
	}

	reply, outcome, procErr := h.advance(c, conv, msg)
	if procErr != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "processing failed"})
	}
	if conv.Stage == session.StageDone {
		_ = h.Sessions.Delete(ctx, conv.ID)
	} else if err := h.Sessions.Put(ctx, conv); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "session error"})
	}
	return c.JSON(http.StatusOK, chatResp{
		ConversationID: conv.ID, Reply: reply, Stage: conv.Stage, Outcome: outcome,
	})
}

// StageGreeting is a synthetic pre-stage for a brand new conversation:
// the first call only greets, the email question is answered on the
// next turn.
const StageGreeting = "greeting"

func (h *ChatHandler) loadOrStart(c echo.Context, id string) (*session.Conversation, error) {
	if id != "" {
		conv, err := h.Sessions.Get(c.Request().Context(), id)
		if err == nil {
			return conv, nil
		}
		if !errors.Is(err, session.ErrNotFound) {
			return nil, err
		}
		// Expired conversations restart transparently.
	}
	return &session.Conversation{ID: "chat_" + utils.RandomHex(8), Stage: StageGreeting}, nil
}

func (h *ChatHandler) advance(c echo.Context, conv *session.Conversation, msg string) (string, *model.Outcome, error) {
	switch conv.Stage {
	case session.StageEmail:
		if !emailRe.MatchString(msg) {
			return "Ese email no parece válido. Probá de nuevo, por ejemplo: ana@mail.com", nil, nil
		}
		conv.MemberEmail = strings.ToLower(msg)
		conv.Stage = session.StageName
		return "¡Gracias! ¿Cómo te llamás?", nil, nil

	case session.StageName:
		if msg == "" {
			return "Necesito un nombre para la solicitud. ¿Cómo te llamás?", nil, nil
		}
		conv.MemberName = msg
		conv.Stage = session.StageShow
		return "Perfecto, " + conv.MemberName + ". ¿Para qué show querés el descuento? Contame el artista, la fecha o el lugar.", nil, nil

	case session.StageShow:
		if msg == "" {
			return "Contame algo del show: artista, fecha o lugar.", nil, nil
		}
		conv.Description = msg
		conv.Stage = session.StageConfirm
		return "Entonces pedís un descuento para: \"" + conv.Description + "\". ¿Lo confirmo? (sí/no)", nil, nil

	case session.StageConfirm:
		if !isAffirmative(msg) {
			conv.Stage = session.StageShow
			return "Sin problema. ¿Para qué show querés el descuento?", nil, nil
		}
		if conv.RequestID == "" {
			conv.RequestID = service.NewRequestID()
		}
		out, err := h.Pipeline.Process(c.Request().Context(), model.DiscountRequest{
			RequestID:   conv.RequestID,
			MemberEmail: conv.MemberEmail,
			MemberName:  conv.MemberName,
			Description: conv.Description,
		})
		if err != nil {
			return "", nil, err
		}
		conv.Stage = session.StageDone
		return "¡Listo! Tu solicitud quedó registrada con el id " + out.RequestID +
			". Te llega la respuesta por email una vez revisada.", out, nil

	default:
		conv.Stage = session.StageEmail
		return "Retomemos: ¿cuál es tu email de la comunidad?", nil, nil
	}
}

func isAffirmative(msg string) bool {
	switch strings.ToLower(strings.TrimSpace(msg)) {
	case "si", "sí", "s", "yes", "dale", "ok", "confirmo", "confirmar":
		return true
	}
	return false
}
