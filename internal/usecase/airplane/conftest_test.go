package airplane

import (
	"github.com/kailas-cloud/aerolab/internal/domain/geometry"
)

type mockStore struct {
	saveFn func(path string, a *geometry.Airplane) error
	loadFn func(path string) (geometry.Airplane, error)
}

func (m *mockStore) Save(path string, a *geometry.Airplane) error {
	if m.saveFn != nil {
		return m.saveFn(path, a)
	}
	return nil
}

func (m *mockStore) Load(path string) (geometry.Airplane, error) {
	if m.loadFn != nil {
		return m.loadFn(path)
	}
	return geometry.Airplane{}, nil
}
