package pix

const (
	crcInit = 0xFFFF
	crcPoly = 0x1021
)

// CRC16 computes CRC16/CCITT-FALSE: init 0xFFFF, poly 0x1021, no reflection, no final xor.
func CRC16(data []byte) uint16 {
	crc := uint16(crcInit)
	for _, b := range data {
		crc ^= uint16(b) << 8
		for i := 0; i < 8; i++ {
			if crc&0x8000 != 0 {
				crc = crc<<1 ^ crcPoly
			} else {
				crc <<= 1
			}
		}
	}
	return crc
}
