package filesystem

const (
	// TemporaryNamePrefix is the file name prefix used for all temporary files
	// and directories created by Rojo. Using this prefix guarantees that any
	// such files are recognizable as transient scratch state rather than
	// project content.
	TemporaryNamePrefix = ".rojo-temporary-"
)
