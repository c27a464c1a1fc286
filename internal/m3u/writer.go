package m3u

import (
	"bytes"
)

// Render serializes channels back into extended M3U format. Each entry is
// written as its verbatim EXTINF line, any extra metadata lines, then the
// stream URL, so a rendered entry is byte-identical to its source.
func Render(channels []Channel) []byte {
	var buf bytes.Buffer

	buf.WriteString("#EXTM3U\n")

	for _, channel := range channels {
		buf.WriteString(channel.Info)
		buf.WriteString("\n")

		for _, line := range channel.Extra {
			buf.WriteString(line)
			buf.WriteString("\n")
		}

		buf.WriteString(channel.URL)
		buf.WriteString("\n")
	}

	return buf.Bytes()
}
