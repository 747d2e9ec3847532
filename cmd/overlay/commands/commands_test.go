package commands

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// executeCommand runs the root command with args and captures its output.
func executeCommand(t *testing.T, args ...string) (string, string, error) {
	t.Helper()

	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	rootCmd.SetArgs(args)
	t.Cleanup(func() {
		rootCmd.SetOut(nil)
		rootCmd.SetErr(nil)
		rootCmd.SetArgs(nil)
		simulateCatalog, simulateAnimations, simulateQuiet = "", false, false
		listenEncoding, listenSampleRate, listenMic = "", 0, false
	})

	err := rootCmd.ExecuteContext(context.Background())
	return stdout.String(), stderr.String(), err
}

func TestRootCommand_ShowsHelpWhenNoSubcommand(t *testing.T) {
	stdout, _, err := executeCommand(t)

	assert.NoError(t, err)
	assert.Contains(t, stdout, "Usage:", "Help should be displayed")
	assert.Contains(t, stdout, "overlay")
}

func TestRootCommand_RejectsUnknownFlags(t *testing.T) {
	_, _, err := executeCommand(t, "--unknown-flag", "value")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestMatchCommand(t *testing.T) {
	t.Run("prints recognized command", func(t *testing.T) {
		stdout, _, err := executeCommand(t, "match", "Disable", "bone.")
		require.NoError(t, err)
		assert.Contains(t, stdout, "disable Bone")
		assert.Contains(t, stdout, "strategy: fuzzy")
	})

	t.Run("warns when nothing matches", func(t *testing.T) {
		stdout, _, err := executeCommand(t, "match", "banana")
		require.NoError(t, err)
		assert.Contains(t, stdout, "no command recognized")
	})

	t.Run("requires an utterance", func(t *testing.T) {
		_, _, err := executeCommand(t, "match")
		require.Error(t, err)
	})
}

func TestCatalogValidateCommand(t *testing.T) {
	t.Run("valid catalog", func(t *testing.T) {
		stdout, _, err := executeCommand(t, "catalog", "validate", "testdata/catalog.yaml")
		require.NoError(t, err)
		assert.Contains(t, stdout, "is valid")
		assert.Contains(t, stdout, "SurgicalProbe -> Probe")
		assert.Contains(t, stdout, "VirtualPhantomTracked -> Phantom")
	})

	t.Run("invalid catalog", func(t *testing.T) {
		_, stderr, err := executeCommand(t, "catalog", "validate", "testdata/invalid_catalog.yaml")
		require.Error(t, err)
		assert.Equal(t, "catalog is invalid", err.Error())
		assert.Contains(t, stderr, "duplicate reference object")
	})
}

func TestCatalogSchemaCommand(t *testing.T) {
	stdout, _, err := executeCommand(t, "catalog", "schema")
	require.NoError(t, err)
	assert.Contains(t, stdout, `"default_model"`)
	assert.Contains(t, stdout, `"objects"`)
}

func TestSimulateCommand(t *testing.T) {
	t.Run("replays script", func(t *testing.T) {
		stdout, _, err := executeCommand(t, "simulate", "testdata/phantom.yaml", "--catalog", "testdata/catalog.yaml")
		require.NoError(t, err)

		assert.Contains(t, stdout, "anchor.asset_preloaded asset=Phantom loaded=1/1")
		assert.Contains(t, stdout, "anchor.visualization_attached")
		assert.Contains(t, stdout, "voice.command_recognized")
		assert.Contains(t, stdout, "Bone: hidden")
		assert.Contains(t, stdout, "Soft Tissue: hidden")
		assert.Contains(t, stdout, "Brain: visible")
		assert.Contains(t, stdout, "replayed 6 steps")
	})

	t.Run("quiet prints only the summary", func(t *testing.T) {
		stdout, _, err := executeCommand(t, "simulate", "testdata/phantom.yaml", "--quiet")
		require.NoError(t, err)

		assert.NotContains(t, stdout, "anchor.visualization_attached")
		assert.Contains(t, stdout, "Bone: hidden")
	})

	t.Run("malformed catalog is fatal", func(t *testing.T) {
		_, stderr, err := executeCommand(t, "simulate", "testdata/phantom.yaml", "--catalog", "testdata/invalid_catalog.yaml")
		require.Error(t, err)
		assert.Contains(t, stderr, "duplicate reference object")
	})

	t.Run("missing script", func(t *testing.T) {
		_, _, err := executeCommand(t, "simulate", "testdata/missing.yaml")
		require.Error(t, err)
		assert.Equal(t, "failed to load script", err.Error())
	})
}

func TestListenCommandRequiresAPIKey(t *testing.T) {
	t.Setenv("DEEPGRAM_API_KEY", "")

	_, stderr, err := executeCommand(t, "listen")
	require.Error(t, err)
	assert.Equal(t, "missing Deepgram API key", err.Error())
	assert.Contains(t, stderr, "DEEPGRAM_API_KEY")
}

func TestListenCommandRejectsUnknownEncoding(t *testing.T) {
	_, _, err := executeCommand(t, "listen", "--encoding", "flac")
	require.Error(t, err)
	assert.Equal(t, "invalid audio encoding", err.Error())
}

func TestReadAudioChunksInput(t *testing.T) {
	out := make(chan []byte, 4)
	readAudio(context.Background(), bytes.NewReader([]byte{1, 2, 3, 4, 5}), 2, out)

	var chunks [][]byte
	for chunk := range out {
		chunks = append(chunks, chunk)
	}
	assert.Equal(t, [][]byte{{1, 2}, {3, 4}, {5}}, chunks)
}
