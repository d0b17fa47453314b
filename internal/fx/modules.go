package fx

import (
	"queueup/internal/config"
	"queueup/internal/database"
	"queueup/internal/httpapi"
	"queueup/internal/logger"
	"queueup/internal/notify"
	"queueup/internal/repository"
	"queueup/internal/serializer"
	"queueup/internal/session"

	"go.uber.org/fx"
)

func provideStores(players *repository.PlayerRepository, configs *repository.ConfigRepository) (session.PlayerStore, session.ConfigStore) {
	return players, configs
}

func provideRooms() (session.RoomProvider, session.PresenceSource) {
	// No chat platform attached in this build; sessions run against the
	// in-process room table.
	rooms := session.NewMemoryRooms()
	return rooms, rooms
}

var Module = fx.Options(
	fx.Provide(logger.New),
	fx.Provide(config.Load),
	fx.Provide(database.New),
	// repos
	fx.Provide(repository.NewPlayerRepository),
	fx.Provide(repository.NewConfigRepository),
	fx.Provide(provideStores),
	// collaborators
	fx.Provide(provideRooms),
	fx.Provide(notify.NewSink),
	// core
	fx.Provide(serializer.New),
	fx.Provide(session.NewManager),
	// server
	fx.Provide(httpapi.NewServer),
)
