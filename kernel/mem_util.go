package kernel

// Fill repeats pattern across dst. A trailing partial copy of the pattern is
// written if len(dst) is not a multiple of len(pattern). Instead of a byte
// loop, the pattern is copied once and the filled prefix is then doubled with
// log2(len(dst)) copy calls, which keeps large framebuffer fills fast.
func Fill(dst, pattern []byte) {
	if len(dst) == 0 || len(pattern) == 0 {
		return
	}

	filled := copy(dst, pattern)
	for filled < len(dst) {
		filled += copy(dst[filled:], dst[:filled])
	}
}
