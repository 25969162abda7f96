package assistant

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/normanking/voicedesk/internal/rag"
)

// apologyText is spoken whenever the answer service call fails.
const apologyText = "I'm sorry, I encountered an error while processing your request."

// contextTurns is how many recent turns are sent as context with each query.
const contextTurns = 3

// AnswerClient is the narrow contract the dispatcher needs from the answer
// service client.
type AnswerClient interface {
	Query(ctx context.Context, req *rag.QueryRequest) (*rag.QueryResponse, error)
}

// Dispatcher turns a non-command utterance into an answer service request
// and normalizes the reply (or failure) into a ResponseRecord. It never
// returns an error across this boundary: the orchestrator always receives a
// speakable record.
type Dispatcher struct {
	client  AnswerClient
	session *Session
	logger  zerolog.Logger
}

// NewDispatcher creates a dispatcher bound to a session and answer client.
func NewDispatcher(client AnswerClient, session *Session, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		client:  client,
		session: session,
		logger:  logger.With().Str("component", "dispatcher").Logger(),
	}
}

// Dispatch sends the utterance to the answer service with the current
// identity and recent-history context.
func (d *Dispatcher) Dispatch(ctx context.Context, utterance string) ResponseRecord {
	identity := d.session.Identity()

	req := &rag.QueryRequest{
		Name:     identity.Name,
		UserType: string(identity.Type),
		Message:  utterance,
		Context:  d.session.ContextString(contextTurns),
	}

	resp, err := d.client.Query(ctx, req)
	if err != nil {
		d.logger.Error().Err(err).Str("query", utterance).Msg("Answer service query failed")
		return ResponseRecord{
			Query:     utterance,
			Text:      apologyText,
			Succeeded: false,
			ErrorInfo: err.Error(),
		}
	}

	d.logger.Info().Str("query", utterance).Float64("confidence", resp.Confidence).Msg("Query answered")
	return ResponseRecord{
		Query:      utterance,
		Text:       resp.Response,
		Succeeded:  true,
		Confidence: resp.Confidence,
		Sources:    resp.Sources,
	}
}
