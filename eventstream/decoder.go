package eventstream

import (
	"io"
)

// Decoder reads frames one at a time from a streaming response body. It
// buffers only as much as the current frame needs.
type Decoder struct {
	r   io.Reader
	buf []byte
}

// NewDecoder returns a Decoder consuming r.
func NewDecoder(r io.Reader) *Decoder {
	return &Decoder{r: r}
}

// Next returns the next complete message. It returns io.EOF when the
// stream ends cleanly on a frame boundary, and io.ErrUnexpectedEOF when
// it ends mid-frame.
func (d *Decoder) Next() (Message, error) {
	for {
		msg, n, err := DecodeMessage(d.buf)
		if err == nil {
			d.buf = d.buf[n:]
			return msg, nil
		}
		if err != ErrNeedMoreData {
			return Message{}, err
		}

		chunk := make([]byte, 4096)
		read, rerr := d.r.Read(chunk)
		if read > 0 {
			d.buf = append(d.buf, chunk[:read]...)
			continue
		}
		if rerr == io.EOF {
			if len(d.buf) == 0 {
				return Message{}, io.EOF
			}
			return Message{}, io.ErrUnexpectedEOF
		}
		if rerr != nil {
			return Message{}, rerr
		}
	}
}
