package cmd

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/ssargent/blinkdb/pkg/api"
	"github.com/stretchr/testify/assert"
)

func newTestSystemService(t *testing.T, dataDir, systemKey string, enableEncryption bool) *api.SystemService {
	t.Helper()
	svc, err := api.NewSystemService(api.SystemConfig{
		DataDir:          dataDir,
		EncryptionKey:    systemKey,
		EnableEncryption: enableEncryption,
	})
	assert.NoError(t, err)
	return svc
}

func TestInitCommand(t *testing.T) {
	// Create temporary directory for test
	tmpDir, err := os.MkdirTemp("", "blinkdb_init_test")
	assert.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dataDir := filepath.Join(tmpDir, "data")
	systemKey := "test-system-key-1234567890123456" // 32 bytes for AES-256

	t.Run("Successful initialization", func(t *testing.T) {
		systemService := newTestSystemService(t, dataDir, systemKey, true)

		err = systemService.InitializeSystem(dataDir, systemKey, systemKey)
		assert.NoError(t, err)

		// Verify system directory was created
		systemDir := filepath.Join(dataDir, "system")
		assert.DirExists(t, systemDir)

		// Verify system data file was created
		systemFile := filepath.Join(systemDir, "active.data")
		assert.FileExists(t, systemFile)
	})

	t.Run("Force reinitialization", func(t *testing.T) {
		systemService := newTestSystemService(t, dataDir, systemKey, true)

		// First initialization
		err = systemService.InitializeSystem(dataDir, systemKey, systemKey)
		assert.NoError(t, err)

		// Second initialization with same key (should work)
		err = systemService.InitializeSystem(dataDir, systemKey, systemKey)
		assert.NoError(t, err)

		// Second initialization with different key (should work due to force logic in init command)
		err = systemService.InitializeSystem(dataDir, "different-key", "different-key")
		assert.NoError(t, err)
	})

	t.Run("Invalid data directory", func(t *testing.T) {
		invalidDir := "/invalid/path/that/does/not/exist"
		systemService, err := api.NewSystemService(api.SystemConfig{
			DataDir:          invalidDir,
			EncryptionKey:    systemKey,
			EnableEncryption: true,
		})
		if err != nil {
			assert.Error(t, err)
			return
		}
		err = systemService.InitializeSystem(invalidDir, systemKey, systemKey)
		assert.Error(t, err)
	})

	t.Run("Empty system key", func(t *testing.T) {
		systemService := newTestSystemService(t, dataDir, "", false)
		err = systemService.InitializeSystem(dataDir, "", "")
		assert.NoError(t, err) // Should still work, just with empty key
	})
}

func TestLoadExistingSystemKey(t *testing.T) {
	// Create temporary directory for test
	tmpDir, err := os.MkdirTemp("", "blinkdb_load_test")
	assert.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dataDir := filepath.Join(tmpDir, "data")
	systemKey := "existing-system-key-1234567890123456" // 36 bytes

	t.Run("Load existing system key", func(t *testing.T) {
		t.Skip("loadExistingSystemKey function not yet implemented")
		systemService := newTestSystemService(t, dataDir, systemKey, true)
		err = systemService.InitializeSystem(dataDir, systemKey, systemKey)
		assert.NoError(t, err)

		// Now try to load it
		loadedKey, err := loadExistingSystemKey(dataDir)
		assert.NoError(t, err)
		assert.Equal(t, systemKey, loadedKey)
	})

	t.Run("Load from non-existent system", func(t *testing.T) {
		t.Skip("loadExistingSystemKey is not fully implemented")
		nonExistentDir := filepath.Join(tmpDir, "nonexistent")
		loadedKey, err := loadExistingSystemKey(nonExistentDir)
		assert.Error(t, err)
		assert.Empty(t, loadedKey)
		assert.Contains(t, err.Error(), "system not initialized")
	})
}
