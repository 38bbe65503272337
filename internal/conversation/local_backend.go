package conversation

import (
	"context"

	"github.com/totalhomes/lead-qualifier/internal/qualify"
)

// LocalBackend runs the deterministic extractor, refusal handler, scorer and
// dialogue controller in process. It never touches the network.
type LocalBackend struct{}

func NewLocalBackend() *LocalBackend {
	return &LocalBackend{}
}

func (b *LocalBackend) Name() string { return "local" }

func (b *LocalBackend) RunTurn(ctx context.Context, req TurnRequest) (TurnResult, error) {
	if err := ctx.Err(); err != nil {
		return TurnResult{}, err
	}
	state := req.State
	out := qualify.NewEngine(req.Config).Apply(&state, req.Utterance(), req.Language)
	return resultFromState(state, out.DisplayText, out.NextQuestion), nil
}
