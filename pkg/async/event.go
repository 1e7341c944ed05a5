package async

import (
	"bufio"
	"io"
	"os"
)

// EnterKey closes once a line is read from stdin.
func EnterKey() <-chan struct{} {
	return LineFrom(os.Stdin)
}

// LineFrom closes once r yields a newline or ends.
func LineFrom(r io.Reader) <-chan struct{} {
	return Job(func() {
		bufio.NewReader(r).ReadBytes('\n')
	})
}
