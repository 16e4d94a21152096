//go:build wireinject
// +build wireinject

package di

import (
	"github.com/google/wire"

	"github.com/DanielSanMiguel/entrega-imagenes/internal/app"
	"github.com/DanielSanMiguel/entrega-imagenes/internal/repository"
)

func InitializeApp() (*app.App, func(), error) {
	panic(wire.Build(
		ConfigSet,
		ObservabilitySet,
		RuntimeInfraSet,
		RepositorySet,
		SecuritySet,
		ServiceSet,
		HTTPSet,
		AppSet,
	))
}

func InitializeRecordStore() (repository.RecordStore, func(), error) {
	panic(wire.Build(
		ConfigSet,
		provideDatabase,
		RepositorySet,
	))
}
