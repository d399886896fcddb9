package ledger

import "context"

// ExchangeAll sends cmds through ch one at a time, waiting for each reply
// before issuing the next command. Intermediate replies are discarded without
// inspection; only the reply to the final command is returned.
//
// A channel error aborts the sequence and is returned unchanged.
func ExchangeAll(ctx context.Context, ch Channel, cmds []*Command) ([]byte, error) {
	if len(cmds) == 0 {
		return nil, ErrNoCommands
	}

	var last []byte
	for _, cmd := range cmds {
		raw, err := ch.Send(ctx, cmd)
		if err != nil {
			return nil, err
		}
		last = raw
	}
	return last, nil
}
