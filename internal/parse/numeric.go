package parse

import "strconv"

// parsePPNumberInt parses the integer value of a pp-number token's
// spelling, stripping integer-suffix letters and recognizing 0x/0b/0
// radix prefixes. Mirrors internal/preproc's identically-named helper;
// duplicated rather than exported cross-package since each package's
// token stream is otherwise independent and this is a small leaf
// utility, not shared state.
func parsePPNumberInt(s string) (int64, error) {
	end := len(s)
	for end > 0 {
		c := s[end-1]
		if c == 'u' || c == 'U' || c == 'l' || c == 'L' {
			end--
			continue
		}
		break
	}
	digits := s[:end]
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'x' || digits[1] == 'X') {
		return strconv.ParseInt(digits[2:], 16, 64)
	}
	if len(digits) > 1 && digits[0] == '0' && (digits[1] == 'b' || digits[1] == 'B') {
		return strconv.ParseInt(digits[2:], 2, 64)
	}
	if len(digits) > 1 && digits[0] == '0' {
		return strconv.ParseInt(digits[1:], 8, 64)
	}
	if digits == "" {
		return 0, nil
	}
	return strconv.ParseInt(digits, 10, 64)
}
