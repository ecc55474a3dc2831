package deviceid

import (
	"context"
	"fmt"
	"os/exec"
	"regexp"
)

var platformUUID = regexp.MustCompile(`"IOPlatformUUID"\s*=\s*"([^"]+)"`)

func platformID(ctx context.Context) (string, error) {
	out, err := exec.CommandContext(ctx, "ioreg", "-rd1", "-c", "IOPlatformExpertDevice").Output()
	if err != nil {
		return "", fmt.Errorf("ioreg: %w", err)
	}
	return parseIOReg(out)
}

func parseIOReg(out []byte) (string, error) {
	m := platformUUID.FindSubmatch(out)
	if m == nil {
		return "", fmt.Errorf("ioreg: %w", ErrNotFound)
	}
	return normalize(string(m[1]), "ioreg")
}
