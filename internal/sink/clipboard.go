package sink

import "github.com/atotto/clipboard"

// SystemClipboard is the default injected writer, backed by the
// platform clipboard without spawning helper processes.
func SystemClipboard(content []byte) error {
	return clipboard.WriteAll(string(content))
}
