// Package chainfeed subscribes to program logs over websocket and nudges the
// refresh loop whenever a tracked DEX program lands a transaction. It is a
// trigger only; pool state always comes from the account refresh.
package chainfeed

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
	"github.com/gagliardetto/solana-go/rpc/ws"
	"go.uber.org/zap"
)

const reconnectDelay = 3 * time.Second

type Feed struct {
	endpoint string
	programs []solana.PublicKey
	log      *zap.Logger
}

func New(endpoint string, programs []solana.PublicKey, log *zap.Logger) *Feed {
	return &Feed{endpoint: endpoint, programs: programs, log: log}
}

// Run keeps one log subscription per program alive until ctx is cancelled,
// reconnecting on failure. Each matching log sends a non-blocking nudge.
func (f *Feed) Run(ctx context.Context, wake chan<- struct{}) {
	if f.endpoint == "" || len(f.programs) == 0 {
		f.log.Info("chain feed disabled")
		return
	}

	for {
		if err := f.subscribe(ctx, wake); err != nil && ctx.Err() == nil {
			f.log.Warn("chain feed disconnected; reconnecting", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

func (f *Feed) subscribe(ctx context.Context, wake chan<- struct{}) error {
	client, err := ws.Connect(ctx, f.endpoint)
	if err != nil {
		return err
	}
	defer client.Close()

	errs := make(chan error, len(f.programs))
	for _, program := range f.programs {
		sub, err := client.LogsSubscribeMentions(program, rpc.CommitmentProcessed)
		if err != nil {
			return err
		}
		go func(program solana.PublicKey, sub *ws.LogSubscription) {
			defer sub.Unsubscribe()
			for {
				msg, err := sub.Recv(ctx)
				if err != nil {
					errs <- err
					return
				}
				if msg.Value.Err != nil {
					continue
				}
				select {
				case wake <- struct{}{}:
				default:
				}
			}
		}(program, sub)
	}

	f.log.Info("chain feed subscribed", zap.Int("programs", len(f.programs)))
	select {
	case <-ctx.Done():
		return ctx.Err()
	case err := <-errs:
		return err
	}
}
