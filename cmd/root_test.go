package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sim "github.com/cookiefactory/line-sim/sim"
)

// resetRunFlags restores the run command's flags after a test parses them.
func resetRunFlags(t *testing.T) {
	t.Helper()
	t.Cleanup(func() {
		for _, name := range []string{"seed", "horizon", "line-config"} {
			f := runCmd.Flags().Lookup(name)
			require.NoError(t, f.Value.Set(f.DefValue))
			f.Changed = false
		}
	})
}

func TestResolveLineConfig_Defaults(t *testing.T) {
	resetRunFlags(t)
	require.NoError(t, runCmd.ParseFlags(nil))

	cfg, err := resolveLineConfig(runCmd)

	require.NoError(t, err)
	assert.Equal(t, sim.DefaultLineConfig(), cfg)
}

func TestResolveLineConfig_FlagsOverrideFile(t *testing.T) {
	// GIVEN a line file with its own seed and horizon
	path := filepath.Join(t.TempDir(), "line.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seed: 1\nhorizon: 8\n"), 0o644))
	resetRunFlags(t)

	// WHEN only --seed is passed alongside it
	require.NoError(t, runCmd.ParseFlags([]string{"--line-config", path, "--seed", "42"}))
	cfg, err := resolveLineConfig(runCmd)

	// THEN the flag wins and the unset flag leaves the file's value alone
	require.NoError(t, err)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.Equal(t, 8.0, cfg.Horizon)
}

func TestResolveLineConfig_RejectsInvalidHorizon(t *testing.T) {
	resetRunFlags(t)
	require.NoError(t, runCmd.ParseFlags([]string{"--horizon", "0"}))

	_, err := resolveLineConfig(runCmd)

	assert.Error(t, err)
}
