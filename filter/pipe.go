package filter

import (
	"io"
)

// pipeDecoder adapts a stdlib decoder that wants an io.Reader into the
// block-push Filter decode contract, by running the decoder in its own
// goroutine over an io.Pipe. DecodeBlock writes into the pipe (blocking
// until the decoder goroutine has consumed enough to make room, which is
// exactly the backpressure a streaming filter needs), EndDecode closes the
// pipe and waits for the goroutine to drain and report its error.
type pipeDecoder struct {
	pw     *io.PipeWriter
	done   chan error
	newRdr func(io.Reader) (io.Reader, error)
}

func (p *pipeDecoder) BeginDecode(dst io.Writer) error {
	pr, pw := io.Pipe()
	p.pw = pw
	p.done = make(chan error, 1)

	go func() {
		r, err := p.newRdr(pr)
		if err != nil {
			pr.CloseWithError(err)
			p.done <- err
			return
		}
		_, err = io.Copy(dst, r)
		if err != nil {
			pr.CloseWithError(err)
			p.done <- err
			return
		}
		p.done <- nil
	}()

	return nil
}

func (p *pipeDecoder) DecodeBlock(dst io.Writer, block []byte) error {
	if len(block) == 0 {
		return nil
	}
	_, err := p.pw.Write(block)
	return err
}

func (p *pipeDecoder) EndDecode(dst io.Writer) error {
	p.pw.Close()
	return <-p.done
}
