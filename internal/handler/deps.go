package handler

import (
	"relaychat/internal/app/chat"
	"relaychat/internal/app/ws"
	"relaychat/internal/configs"
)

type AppDeps struct {
	Manager *chat.Manager
	Hub     *ws.Hub
	Config  *configs.AppConfig
}
