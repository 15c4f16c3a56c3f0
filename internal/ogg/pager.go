package ogg

import "encoding/binary"

// segmentsFor returns the lacing values for one packet of length n: as many
// 255s as needed followed by a terminating value in [0, 254] (emitting a
// trailing 0 when n is an exact multiple of 255, since every packet must
// end with a value less than 255).
func segmentsFor(n int) []byte {
	var segs []byte
	for n >= 255 {
		segs = append(segs, 255)
		n -= 255
	}
	segs = append(segs, byte(n))
	return segs
}

// encodePages re-pages packets into a contiguous run of Ogg pages sharing
// serial, with page sequence numbers starting at startSeq. Each rebuilt
// page recomputes its own lacing, CRC, and page sequence number. Every
// page gets granule position 0, matching the convention real encoders use
// for header pages (no audio samples have been presented yet).
func encodePages(packets [][]byte, serial uint32, startSeq uint32) []byte {
	var segTable []byte
	var data []byte
	for _, p := range packets {
		segTable = append(segTable, segmentsFor(len(p))...)
		data = append(data, p...)
	}

	var out []byte
	seq := startSeq
	segIdx := 0
	dataOff := 0
	continuation := false

	for segIdx < len(segTable) {
		end := segIdx + 255
		if end > len(segTable) {
			end = len(segTable)
		}
		chunk := segTable[segIdx:end]

		chunkLen := 0
		for _, s := range chunk {
			chunkLen += int(s)
		}
		body := data[dataOff : dataOff+chunkLen]

		headerType := byte(0)
		if continuation {
			headerType |= 0x01
		}
		out = append(out, encodePage(serial, seq, 0, headerType, chunk, body)...)

		continuation = len(chunk) > 0 && chunk[len(chunk)-1] == 255
		dataOff += chunkLen
		segIdx = end
		seq++
	}
	return out
}

// encodePage serializes one Ogg page and fills in its CRC.
func encodePage(serial, seq uint32, granule uint64, headerType byte, segTable, body []byte) []byte {
	page := make([]byte, 27+len(segTable)+len(body))
	copy(page[0:4], Magic)
	page[4] = 0 // version
	page[5] = headerType
	binary.LittleEndian.PutUint64(page[6:14], granule)
	binary.LittleEndian.PutUint32(page[14:18], serial)
	binary.LittleEndian.PutUint32(page[18:22], seq)
	// page[22:26] CRC filled in below
	page[26] = byte(len(segTable))
	copy(page[27:27+len(segTable)], segTable)
	copy(page[27+len(segTable):], body)

	crc := crc32(page)
	binary.LittleEndian.PutUint32(page[22:26], crc)
	return page
}
