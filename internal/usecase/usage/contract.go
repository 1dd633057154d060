package usage

import "github.com/kailas-cloud/aerolab/internal/usecase/embedding"

// BudgetReader is the read side of the embedding budget tracker.
type BudgetReader interface {
	Provider() string
	Usage(w embedding.Window) embedding.Usage
}
