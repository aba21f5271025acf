package mdns

import (
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDefaultServiceNameStripsDomain(t *testing.T) {
	hostname, err := os.Hostname()
	if err != nil {
		t.Skip("no hostname available in this environment")
	}

	name := defaultServiceName()
	short, _, _ := strings.Cut(hostname, ".")

	assert.Equal(t, "mGurdy on "+short, name)
}
