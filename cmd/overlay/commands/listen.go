package commands

import (
	"context"
	"errors"
	"io"
	"os"
	"time"

	orchestration "github.com/koscakluka/overlay-core/core"
	"github.com/koscakluka/overlay-core/core/audio"
	"github.com/koscakluka/overlay-core/core/audio/miniaudio"
	"github.com/koscakluka/overlay-core/core/commands"
	"github.com/koscakluka/overlay-core/core/transcripts/deepgram"
	"github.com/koscakluka/overlay-core/core/voice"
	"github.com/koscakluka/overlay-core/internal/printer"
	"github.com/spf13/cobra"
)

const audioChunkDuration = 20 * time.Millisecond

var (
	listenEncoding   string
	listenSampleRate int
	listenMic        bool
)

var listenCmd = &cobra.Command{
	Use:   "listen",
	Short: "Stream raw audio from stdin to Deepgram and print voice commands",
	Long: `Read raw single channel audio from stdin or the default microphone, transcribe it with the
Deepgram live API and drive a voice session with the transcripts. Wake and
sleep transitions and recognized commands are printed as they happen.

Examples:
  overlay listen --mic
  arecord -f S16_LE -r 16000 -c 1 -t raw | overlay listen
  sox input.wav -t raw -r 8000 -e mu-law - | overlay listen --encoding mulaw --sample-rate 8000`,
	Args: cobra.NoArgs,
	RunE: runListen,
}

func init() {
	listenCmd.Flags().StringVar(&listenEncoding, "encoding", "", "Audio encoding: linear16, mulaw or alaw (defaults to OVERLAY_AUDIO_ENCODING)")
	listenCmd.Flags().IntVar(&listenSampleRate, "sample-rate", 0, "Audio sample rate in Hz (defaults to OVERLAY_AUDIO_SAMPLE_RATE)")

	listenCmd.Flags().BoolVar(&listenMic, "mic", false, "Capture from the default input device instead of stdin (linear16 only)")

	rootCmd.AddCommand(listenCmd)
}

func runListen(cmd *cobra.Command, args []string) error {
	format, sampleRate := cfg.Deepgram.Encoding, cfg.Deepgram.SampleRate
	if listenEncoding != "" {
		format = listenEncoding
	}
	if listenSampleRate != 0 {
		sampleRate = listenSampleRate
	}
	encoding, err := audio.ParseEncoding(format, sampleRate)
	if err != nil {
		return printer.Error("invalid audio encoding", err.Error(), []string{"Supported encodings: linear16, mulaw, alaw"})
	}
	if cfg.Deepgram.APIKey == "" {
		return printer.Error(
			"missing Deepgram API key",
			"Live transcription needs a Deepgram API key.",
			[]string{"Set DEEPGRAM_API_KEY"},
		)
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	var audioIn <-chan []byte
	if listenMic {
		capture, err := miniaudio.NewCapture(encoding)
		if err != nil {
			return printer.Error("failed to open microphone", err.Error(), []string{"Pipe raw audio to stdin instead"})
		}
		defer capture.Close()

		if audioIn, err = capture.Start(ctx); err != nil {
			return printer.Error("failed to start microphone", err.Error(), nil)
		}
	} else {
		stdinAudio := make(chan []byte, 16)
		go readAudio(ctx, cmd.InOrStdin(), encoding.ChunkSize(audioChunkDuration), stdinAudio)
		audioIn = stdinAudio
	}

	source := deepgram.NewSource(audioIn,
		deepgram.WithAPIKey(cfg.Deepgram.APIKey),
		deepgram.WithListenURL(cfg.Deepgram.ListenURL),
		deepgram.WithModel(cfg.Deepgram.Model),
		deepgram.WithLanguage(cfg.Deepgram.Language),
		deepgram.WithEncoding(encoding),
	)

	o := orchestration.NewOrchestrator(
		orchestration.WithTranscriptSource(source),
		orchestration.WithSessionOptions(sessionOptions()...),
		orchestration.WithListenOptions(voice.WithRestartDelay(cfg.RestartDelay)),
	)

	printer.Step("listening (%s, %d Hz), say a wake phrase to start\n", encoding.Format.Name(), encoding.SampleRate)
	err = o.Orchestrate(ctx,
		orchestration.WithSessionStateCallback(func(state voice.State) {
			printer.Info("session %s\n", state)
		}),
		orchestration.WithCommandCallback(func(command commands.Command, transcript string) {
			printer.Success("%s (%q)\n", command, transcript)
		}),
	)
	if err != nil && !errors.Is(err, context.Canceled) {
		return printer.Error("listening failed", err.Error(), nil)
	}
	return nil
}

// readAudio splits r into chunks of chunkSize bytes and closes out when r
// is exhausted.
func readAudio(ctx context.Context, r io.Reader, chunkSize int, out chan<- []byte) {
	defer close(out)

	for {
		chunk := make([]byte, chunkSize)
		n, err := io.ReadFull(r, chunk)
		if n > 0 {
			select {
			case out <- chunk[:n]:
			case <-ctx.Done():
				return
			}
		}
		if err != nil {
			if !errors.Is(err, io.EOF) && !errors.Is(err, io.ErrUnexpectedEOF) && !errors.Is(err, os.ErrClosed) {
				printer.Warning("failed to read audio: %v\n", err)
			}
			return
		}
	}
}
