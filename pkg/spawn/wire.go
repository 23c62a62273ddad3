package spawn

// errMsgLen is the size of a child failure report. It is far below PIPE_BUF,
// so the write is atomic and the parent sees either all of it or nothing.
const errMsgLen = 8

var errMsgMarker = [4]byte{'N', 'O', 'E', 'X'}

// encodeErrMsg fills dst with errno in big-endian order followed by the
// marker. It runs in the forked child and must stay allocation free.
//
//go:nosplit
func encodeErrMsg(dst *[errMsgLen]byte, errno uint32) {
	dst[0] = byte(errno >> 24)
	dst[1] = byte(errno >> 16)
	dst[2] = byte(errno >> 8)
	dst[3] = byte(errno)
	dst[4] = errMsgMarker[0]
	dst[5] = errMsgMarker[1]
	dst[6] = errMsgMarker[2]
	dst[7] = errMsgMarker[3]
}

// decodeErrMsg is the inverse of encodeErrMsg. A wrong marker is a
// *ProtocolError.
func decodeErrMsg(msg [errMsgLen]byte) (uint32, error) {
	if [4]byte(msg[4:]) != errMsgMarker {
		return 0, &ProtocolError{Got: msg[:], Reason: "bad marker"}
	}
	return uint32(msg[0])<<24 | uint32(msg[1])<<16 | uint32(msg[2])<<8 | uint32(msg[3]), nil
}
