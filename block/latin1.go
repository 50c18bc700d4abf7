package block

import "unicode/utf8"

// Latin1ToUTF8 maps each raw byte of a non-UTF-8 line to the Unicode
// codepoint of the same value and returns the resulting UTF-8 string, so
// the rest of the pipeline (tokenizer, registry, byte-stuffing) can operate
// on ordinary valid UTF-8 regardless of the input's original encoding
// (spec §3: "the compressor declares the block Latin-1 ... treats each
// byte as a character").
func Latin1ToUTF8(raw []byte) string {
	runes := make([]rune, len(raw))
	for i, b := range raw {
		runes[i] = rune(b)
	}
	return string(runes)
}

// UTF8ToLatin1 reverses Latin1ToUTF8: every rune in data must be <= 0xFF,
// since it was produced by Latin1ToUTF8 somewhere upstream of a Latin-1
// block's reconstruction path.
func UTF8ToLatin1(data []byte) ([]byte, error) {
	out := make([]byte, 0, len(data))
	for _, r := range string(data) {
		if r > 0xFF || r == utf8.RuneError {
			return nil, corrupted("latin1 byte out of range during re-encoding")
		}
		out = append(out, byte(r))
	}
	return out, nil
}
