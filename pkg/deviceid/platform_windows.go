package deviceid

import (
	"context"
	"fmt"

	"golang.org/x/sys/windows/registry"
)

const cryptographyKey = `SOFTWARE\Microsoft\Cryptography`

func platformID(ctx context.Context) (string, error) {
	// 64-bit view, a 32-bit build would otherwise be redirected to WOW6432Node
	k, err := registry.OpenKey(registry.LOCAL_MACHINE, cryptographyKey, registry.QUERY_VALUE|registry.WOW64_64KEY)
	if err != nil {
		return "", fmt.Errorf("open HKLM\\%s: %w", cryptographyKey, err)
	}
	defer k.Close()

	guid, _, err := k.GetStringValue("MachineGuid")
	if err != nil {
		return "", fmt.Errorf("read MachineGuid: %w", err)
	}
	return normalize(guid, "MachineGuid")
}
