package deepgram

import (
	"encoding/json"
	"fmt"
	"strings"

	api "github.com/deepgram/deepgram-go-sdk/pkg/api/listen/v1/websocket/interfaces"
	"github.com/koscakluka/overlay-core/core/transcripts"
)

// utteranceAssembler turns Deepgram result segments into cumulative
// utterance text. Finalized segments accumulate until Deepgram reports the
// end of speech; interim segments are appended to what has accumulated.
type utteranceAssembler struct {
	accumulated string
}

func (a *utteranceAssembler) process(msg []byte) (transcripts.Transcript, bool, error) {
	var parsedMsg controlMessage
	if err := json.Unmarshal(msg, &parsedMsg); err != nil {
		return transcripts.Transcript{}, false, fmt.Errorf("failed to unmarshal deepgram message: %w", err)
	}

	switch api.TypeResponse(parsedMsg.Type) {
	case api.TypeMessageResponse:
		var msgResp api.MessageResponse
		if err := json.Unmarshal(msg, &msgResp); err != nil {
			return transcripts.Transcript{}, false, fmt.Errorf("failed to unmarshal deepgram results: %w", err)
		}

		var segment string
		if len(msgResp.Channel.Alternatives) > 0 {
			segment = strings.TrimSpace(msgResp.Channel.Alternatives[0].Transcript)
		}

		if !msgResp.IsFinal {
			if segment == "" {
				return transcripts.Transcript{}, false, nil
			}
			return transcripts.Partial(joinSegments(a.accumulated, segment)), true, nil
		}

		a.accumulated = joinSegments(a.accumulated, segment)
		if msgResp.SpeechFinal {
			return a.endUtterance()
		}
		if segment == "" {
			return transcripts.Transcript{}, false, nil
		}
		return transcripts.Partial(a.accumulated), true, nil

	case api.TypeUtteranceEndResponse:
		return a.endUtterance()

	case api.TypeSpeechStartedResponse:
		logger.Debug("deepgram detected speech start")
	default:
		logger.Debug("ignoring deepgram message", "type", parsedMsg.Type)
	}

	return transcripts.Transcript{}, false, nil
}

func (a *utteranceAssembler) endUtterance() (transcripts.Transcript, bool, error) {
	text := a.accumulated
	a.accumulated = ""
	if text == "" {
		return transcripts.Transcript{}, false, nil
	}
	return transcripts.Final(text), true, nil
}

func joinSegments(accumulated, segment string) string {
	switch {
	case accumulated == "":
		return segment
	case segment == "":
		return accumulated
	default:
		return accumulated + " " + segment
	}
}
