package request

import (
	"crypto/md5"
	"crypto/sha256"
	"encoding/base64"
	"encoding/binary"
	"fmt"
	"hash/crc32"
	"io"

	"github.com/cirrusws/cirrus-sdk-go/transport"
)

// Checksum header names.
const (
	ContentMD5Header     = "Content-MD5"
	ChecksumSHA256Header = "X-Cirrus-Checksum-Sha256"
	ChecksumCRC32Header  = "X-Cirrus-Checksum-Crc32"
)

// applyChecksum digests the buffered body and attaches the declared
// checksum header. A one-shot stream cannot be digested ahead of send.
func applyChecksum(kind ChecksumKind, req *transport.Request) error {
	if kind == ChecksumNone {
		return nil
	}
	if req.HTTP.GetBody == nil {
		if req.HTTP.Body == nil {
			return digestBody(kind, nil, req)
		}
		return fmt.Errorf("checksum requires a rewindable request body")
	}
	body, err := req.HTTP.GetBody()
	if err != nil {
		return err
	}
	defer body.Close()
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	return digestBody(kind, data, req)
}

func digestBody(kind ChecksumKind, data []byte, req *transport.Request) error {
	switch kind {
	case ChecksumMD5:
		sum := md5.Sum(data)
		req.HTTP.Header.Set(ContentMD5Header, base64.StdEncoding.EncodeToString(sum[:]))
	case ChecksumSHA256:
		sum := sha256.Sum256(data)
		req.HTTP.Header.Set(ChecksumSHA256Header, base64.StdEncoding.EncodeToString(sum[:]))
	case ChecksumCRC32:
		sum := make([]byte, 4)
		binary.BigEndian.PutUint32(sum, crc32.ChecksumIEEE(data))
		req.HTTP.Header.Set(ChecksumCRC32Header, base64.StdEncoding.EncodeToString(sum))
	default:
		return fmt.Errorf("unknown checksum kind %d", kind)
	}
	return nil
}
