package epub

// crcPolynomial is the reversed IEEE 802.3 polynomial used by ZIP.
const crcPolynomial uint32 = 0xEDB88320

// crcTable holds the 256 precomputed remainders for byte-at-a-time CRC-32.
var crcTable = makeCRCTable(crcPolynomial)

func makeCRCTable(poly uint32) *[256]uint32 {
	t := new([256]uint32)
	for i := range t {
		crc := uint32(i)
		for j := 0; j < 8; j++ {
			if crc&1 == 1 {
				crc = (crc >> 1) ^ poly
			} else {
				crc >>= 1
			}
		}
		t[i] = crc
	}
	return t
}

// Checksum returns the CRC-32 of data as stored in ZIP headers:
// initial value 0xFFFFFFFF, reflected table lookup, final XOR 0xFFFFFFFF.
// The checksum of empty input is 0.
func Checksum(data []byte) uint32 {
	return updateChecksum(0, data)
}

// updateChecksum continues a running checksum previously returned by
// Checksum or updateChecksum.
func updateChecksum(crc uint32, data []byte) uint32 {
	crc = ^crc
	for _, b := range data {
		crc = crcTable[byte(crc)^b] ^ (crc >> 8)
	}
	return ^crc
}
