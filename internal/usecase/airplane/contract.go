package airplane

import "github.com/kailas-cloud/aerolab/internal/domain/geometry"

// Store persists built airplanes.
type Store interface {
	Save(path string, a *geometry.Airplane) error
	Load(path string) (geometry.Airplane, error)
}
