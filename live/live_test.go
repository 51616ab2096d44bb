package live

import (
	"os"
	"testing"

	"github.com/onnwee/livestatus/telemetry"
)

func TestMain(m *testing.M) {
	telemetry.Init()
	os.Exit(m.Run())
}
