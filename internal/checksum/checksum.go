// Package checksum implements the CRC-32 variant used by POSIX cksum(1),
// which is what the deployed clients compute over transferred files.
//
// This is NOT the IEEE CRC-32 of hash/crc32: cksum processes bits MSB-first
// with polynomial 0x04C11DB7, starts from zero, appends the message length
// (low byte first, until exhausted) and complements the result. The check
// value for "123456789" is 930766865.
package checksum

import "hash"

// poly is the CRC-32 generator polynomial in normal (MSB-first) form.
const poly = 0x04C11DB7

// Size of a CRC-32 checksum in bytes.
const Size = 4

var crctab = makeTable()

func makeTable() *[256]uint32 {
	var t [256]uint32
	for i := range t {
		crc := uint32(i) << 24
		for range 8 {
			if crc&0x80000000 != 0 {
				crc = crc<<1 ^ poly
			} else {
				crc <<= 1
			}
		}
		t[i] = crc
	}
	return &t
}

func update(crc uint32, p []byte) uint32 {
	for _, b := range p {
		crc = crc<<8 ^ crctab[byte(crc>>24)^b]
	}
	return crc
}

// finalize mixes the message length into the register and complements it,
// matching the tail of cksum's memcrc.
func finalize(crc uint32, n uint64) uint32 {
	for ; n != 0; n >>= 8 {
		crc = crc<<8 ^ crctab[byte(crc>>24)^byte(n)]
	}
	return ^crc
}

// Sum returns the cksum CRC-32 of data.
func Sum(data []byte) uint32 {
	return finalize(update(0, data), uint64(len(data)))
}

// digest implements hash.Hash32 over the cksum polynomial.
type digest struct {
	crc uint32
	n   uint64
}

// New returns a new hash.Hash32 computing the cksum CRC-32.
func New() hash.Hash32 {
	return &digest{}
}

func (d *digest) Write(p []byte) (int, error) {
	d.crc = update(d.crc, p)
	d.n += uint64(len(p))
	return len(p), nil
}

// Sum32 returns the checksum so far. The length postfix is applied on a
// copy, so further writes continue from the unfinalized state.
func (d *digest) Sum32() uint32 {
	return finalize(d.crc, d.n)
}

func (d *digest) Sum(in []byte) []byte {
	s := d.Sum32()
	return append(in, byte(s>>24), byte(s>>16), byte(s>>8), byte(s))
}

func (d *digest) Reset() {
	d.crc = 0
	d.n = 0
}

func (d *digest) Size() int { return Size }

func (d *digest) BlockSize() int { return 1 }
