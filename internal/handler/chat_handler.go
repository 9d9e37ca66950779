package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"relaychat/internal/pkg/errs"
	"relaychat/internal/pkg/req"
	"relaychat/internal/pkg/resp"
)

type SendMessageInput struct {
	Content  string `json:"content"`
	Sender   string `json:"sender" validate:"required"`
	Receiver string `json:"receiver,omitempty"`
}

// HandleListOnlineUsers returns the current userID -> display name map.
func HandleListOnlineUsers(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp.RespondSuccess(w, r, deps.Manager.ListOnlineUsers())
	}
}

// HandleGetHistory returns every message recorded for a user.
func HandleGetHistory(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID := chi.URLParam(r, "userId")
		if userID == "" {
			resp.RespondError(w, r, errs.NewError(errs.ErrInvalidParams))
			return
		}

		resp.RespondSuccess(w, r, deps.Manager.GetHistory(userID))
	}
}

// HandleGetHistoryBetween returns the direct exchange between two users as
// recorded in the first user's log.
func HandleGetHistoryBetween(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userID1 := chi.URLParam(r, "userId1")
		userID2 := chi.URLParam(r, "userId2")

		resp.RespondSuccess(w, r, deps.Manager.GetHistoryBetween(userID1, userID2))
	}
}

// HandleSendMessage routes a chat message submitted over REST. The sender is
// not required to be online.
func HandleSendMessage(deps *AppDeps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input SendMessageInput

		if customErr := req.BindJSON(w, r, &input); customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		msg, customErr := deps.Manager.SubmitChat(input.Content, input.Sender, input.Receiver)
		if customErr != nil {
			resp.RespondError(w, r, customErr)
			return
		}

		resp.RespondSuccess(w, r, msg)
	}
}
