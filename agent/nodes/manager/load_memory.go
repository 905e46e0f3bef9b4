package managernode

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	contractx "github.com/tanpawarit/orbita/agent/contract"
	memoryx "github.com/tanpawarit/orbita/agent/memory"
)

// LoadMemory loads the user's memory profile and renders it into the context
// block the downstream prompts consume. A store failure degrades the turn to
// an empty profile instead of failing it; the miss is logged for operators.
func LoadMemory(ctx context.Context, in *GraphState, store memoryx.Store) (*GraphState, error) {
	if in == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	profile, err := store.Load(ctx, in.UserID)
	if err != nil {
		log.Warn().
			Err(fmt.Errorf("%w: %v", contractx.ErrMemoryUnavailable, err)).
			Str("user_id", in.UserID).
			Str("step", "load_memory").
			Msg("memory store unavailable, continuing without profile")
		in.Profile = memoryx.NewProfile(in.UserID)
		in.MemoryDegraded = true
		in.MemoryContext = ""
		return in, nil
	}

	in.Profile = profile
	in.MemoryContext = memoryx.Render(profile)
	return in, nil
}
