package ports

// ResponseSink is the abstract client-side target of one stream call:
// headers first, then exactly one status line, then body chunks. SetHeader
// is first-write-wins so values the boundary computed survive upstream
// header forwarding. WriteStatus commits the status line once; repeats are
// ignored. WriteChunk matches io.Writer's contract.
type ResponseSink interface {
	SetHeader(key string, values ...string)
	WriteStatus(status int)
	WriteChunk(p []byte) (int, error)
	End()
}
