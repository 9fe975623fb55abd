// Package storage defines interfaces and implementations for the mirror
// storage backends that receive a copy of every logged sample.
package storage

import (
	"context"
	"sync"

	"github.com/chrissnell/volcanomonitor/internal/types"
)

// StorageEngineInterface is an interface that provides a few standardized
// methods for various storage backends
type StorageEngineInterface interface {
	StartStorageEngine(context.Context, *sync.WaitGroup) chan<- types.Sample
}
