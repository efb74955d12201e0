package protocol

// checksumInit is the CRC register value before the first byte.
const checksumInit uint16 = 0xFFFF

// Checksum computes the frame checksum over data.
//
// The algorithm is the nibble-folded form of the reflected CCITT CRC
// (polynomial 0x1021, initial value 0xFFFF, no final XOR) used by the ACE
// firmware:
//
//	d   = b ^ low(crc)
//	d  ^= (d & 0x0F) << 4
//	crc = ((d << 8) | (crc >> 8)) ^ (d >> 4) ^ (d << 3)
//
// Do not swap this for a table-driven library CRC without checking the
// output against a real unit.
func Checksum(data []byte) uint16 {
	crc := checksumInit
	for _, b := range data {
		d := uint16(b ^ byte(crc))
		d ^= (d & 0x0F) << 4
		crc = ((d << 8) | (crc >> 8)) ^ (d >> 4) ^ (d << 3)
	}
	return crc
}
