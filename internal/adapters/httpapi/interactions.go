package httpapi

import (
	"crypto/ed25519"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strings"

	"github.com/fivesquad/pickup-planner-api/internal/app/calls"
	"github.com/fivesquad/pickup-planner-api/internal/domain"
	"github.com/fivesquad/pickup-planner-api/internal/ports/out/responserepo"
)

// Discord interaction wire constants. See the Discord interactions
// documentation for the full enums; only the ones the planner handles are
// listed here.
const (
	interactionPing             = 1
	interactionMessageComponent = 3

	interactionCallbackPong    = 1
	interactionCallbackMessage = 4

	// messageFlagEphemeral makes the reply visible only to the clicking user.
	messageFlagEphemeral = 64
)

type interactionUser struct {
	ID string `json:"id"`
}

type interactionMember struct {
	User *interactionUser `json:"user"`
}

type interactionData struct {
	CustomID string `json:"custom_id"`
}

type interactionRequest struct {
	Type   int                `json:"type"`
	Data   *interactionData   `json:"data"`
	Member *interactionMember `json:"member"`
	User   *interactionUser   `json:"user"`
}

type interactionCallbackData struct {
	Content string `json:"content"`
	Flags   int    `json:"flags,omitempty"`
}

type interactionCallback struct {
	Type int                      `json:"type"`
	Data *interactionCallbackData `json:"data,omitempty"`
}

// DecodeInteractionKey parses a hex-encoded Ed25519 public key as Discord
// hands it out in the application settings.
func DecodeInteractionKey(hexKey string) (ed25519.PublicKey, error) {
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, err
	}
	if len(raw) != ed25519.PublicKeySize {
		return nil, errors.New("interaction key must be 32 bytes")
	}
	return ed25519.PublicKey(raw), nil
}

func ephemeralReply(text string) interactionCallback {
	return interactionCallback{
		Type: interactionCallbackMessage,
		Data: &interactionCallbackData{Content: text, Flags: messageFlagEphemeral},
	}
}

// InteractionsHandler verifies and dispatches Discord interaction callbacks.
// Button clicks on call announcements land here and are translated into
// accept or decline responses for the clicking player's linked account.
type InteractionsHandler struct {
	publicKey ed25519.PublicKey
	provider  domain.Provider
	calls     *calls.Service
}

func NewInteractionsHandler(publicKey ed25519.PublicKey, provider domain.Provider, callsSvc *calls.Service) *InteractionsHandler {
	return &InteractionsHandler{publicKey: publicKey, provider: provider, calls: callsSvc}
}

func (h *InteractionsHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, 1<<20))
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "unreadable body", nil)
		return
	}
	if !h.verifySignature(r, body) {
		writeError(w, r, http.StatusUnauthorized, "UNAUTHORIZED", "invalid request signature", nil)
		return
	}

	var req interactionRequest
	if err := json.Unmarshal(body, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, "VALIDATION_ERROR", "invalid JSON body", nil)
		return
	}

	switch req.Type {
	case interactionPing:
		writeJSON(w, http.StatusOK, interactionCallback{Type: interactionCallbackPong})
	case interactionMessageComponent:
		h.handleComponent(w, r, req)
	default:
		writeJSON(w, http.StatusOK, ephemeralReply("Unsupported interaction."))
	}
}

func (h *InteractionsHandler) verifySignature(r *http.Request, body []byte) bool {
	sigHex := r.Header.Get("X-Signature-Ed25519")
	ts := r.Header.Get("X-Signature-Timestamp")
	if sigHex == "" || ts == "" {
		return false
	}
	sig, err := hex.DecodeString(sigHex)
	if err != nil || len(sig) != ed25519.SignatureSize {
		return false
	}
	msg := make([]byte, 0, len(ts)+len(body))
	msg = append(msg, ts...)
	msg = append(msg, body...)
	return ed25519.Verify(h.publicKey, msg, sig)
}

func (h *InteractionsHandler) handleComponent(w http.ResponseWriter, r *http.Request, req interactionRequest) {
	account := interactionAccount(req)
	if account == "" {
		writeJSON(w, http.StatusOK, ephemeralReply("Could not identify your account."))
		return
	}
	if req.Data == nil {
		writeJSON(w, http.StatusOK, ephemeralReply("Nothing to do."))
		return
	}

	action, callID, ok := strings.Cut(req.Data.CustomID, ":")
	if !ok {
		writeJSON(w, http.StatusOK, ephemeralReply("Unknown button."))
		return
	}

	var status responserepo.Status
	switch action {
	case "accept_call":
		status = responserepo.StatusAccepted
	case "decline_call":
		status = responserepo.StatusDeclined
	default:
		writeJSON(w, http.StatusOK, ephemeralReply("Unknown button."))
		return
	}

	res, err := h.calls.RespondByProviderAccount(r.Context(), h.provider, domain.ProviderAccountID(account), domain.CallID(callID), status)
	if err != nil {
		log.Printf("interactions: respond via %s failed: %v", h.provider, err)
		writeJSON(w, http.StatusOK, ephemeralReply(interactionErrorText(err)))
		return
	}

	text := "You are in. See you there!"
	if status == responserepo.StatusDeclined {
		text = "Noted, you are out for this one."
	}
	if !res.Changed {
		text = "Already recorded, nothing changed."
	}
	writeJSON(w, http.StatusOK, ephemeralReply(text))
}

func interactionAccount(req interactionRequest) string {
	if req.Member != nil && req.Member.User != nil {
		return req.Member.User.ID
	}
	if req.User != nil {
		return req.User.ID
	}
	return ""
}

func interactionErrorText(err error) string {
	var appErr *calls.Error
	if !errors.As(err, &appErr) {
		return "Something went wrong, try again later."
	}
	switch appErr.Code {
	case "PLAYER_NOT_PROVISIONED":
		return "Log in to the planner once so I know who you are."
	case "CALL_NOT_FOUND":
		return "That call no longer exists."
	case "CREATOR_MUST_CANCEL":
		return "You created this call; cancel it instead of declining."
	case "PLAYER_BANNED":
		return "Your account is currently suspended."
	default:
		return "Something went wrong, try again later."
	}
}
