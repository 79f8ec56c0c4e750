package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScanKey(t *testing.T) {
	assert.Equal(t, "2024/04/26/KTLX/KTLX20240426_151000_V06", ScanKey("ktlx", testScanTime))
}

func TestHourPrefix(t *testing.T) {
	ts := time.Date(2024, time.January, 2, 3, 59, 59, 0, time.UTC)
	assert.Equal(t, "2024/01/02/KFWS/KFWS20240102_03", HourPrefix(" kfws ", ts))

	// Non-UTC inputs are converted before formatting.
	cst := time.FixedZone("CST", -6*3600)
	assert.Equal(t, "2024/01/02/KFWS/KFWS20240102_03", HourPrefix("KFWS", ts.In(cst)))
}

func TestExtractTimestamp(t *testing.T) {
	t.Run("round trip", func(t *testing.T) {
		for _, ts := range []time.Time{
			testScanTime,
			time.Date(2023, time.December, 31, 23, 59, 59, 0, time.UTC),
			time.Date(2024, time.February, 29, 0, 0, 1, 0, time.UTC),
		} {
			got, err := ExtractTimestamp(ScanReference{Key: ScanKey("KTLX", ts)}, "ktlx")
			require.NoError(t, err)
			assert.True(t, ts.Equal(got), "want %s got %s", ts, got)
			assert.Equal(t, time.UTC, got.Location())
		}
	})

	t.Run("rejects other formats", func(t *testing.T) {
		for _, key := range []string{
			"2024/04/26/KTLX/KTLX20240426_151000_MDM",
			"2024/04/26/KTLX/KTLX20240426_151000_V06.gz",
			"2024/04/26/KFWS/KFWS20240426_151000_V06",
			"KTLX20240426_151000_V06",
			"",
		} {
			_, err := ExtractTimestamp(ScanReference{Key: key}, "KTLX")
			require.ErrorIs(t, err, ErrTimestampParse, key)
		}
	})
}

func TestValidStation(t *testing.T) {
	assert.True(t, ValidStation("ktlx"))
	assert.True(t, ValidStation("TJUA"))
	assert.False(t, ValidStation("KTL"))
	assert.False(t, ValidStation("../x"))
	assert.False(t, ValidStation("*"))
}
