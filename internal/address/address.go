// Package address converts Signum account ids to and from their
// Reed-Solomon representation (e.g. S-K37B-9V85-FB95-793HN).
package address

import (
	"crypto/sha256"
	"encoding/binary"
	"errors"
	"fmt"
	"strconv"
	"strings"
)

const (
	MainnetPrefix = "S"
	TestnetPrefix = "TS"

	alphabet       = "23456789ABCDEFGHJKLMNPQRSTUVWXYZ"
	base32Length   = 13
	codewordLength = 17
)

var (
	ErrInvalidAddress  = errors.New("invalid account address")
	ErrInvalidCodeword = errors.New("invalid reed-solomon codeword")

	gexp        = [32]int{1, 2, 4, 8, 16, 5, 10, 20, 13, 26, 17, 7, 14, 28, 29, 31, 27, 19, 3, 6, 12, 24, 21, 15, 30, 25, 23, 11, 22, 9, 18, 1}
	glog        = [32]int{0, 0, 1, 18, 2, 5, 19, 11, 3, 29, 6, 27, 20, 8, 12, 23, 4, 10, 30, 17, 7, 22, 28, 26, 21, 25, 9, 16, 13, 14, 24, 15}
	codewordMap = [codewordLength]int{3, 2, 1, 0, 7, 6, 5, 4, 13, 14, 15, 16, 12, 8, 9, 10, 11}
)

// IDFromPublicKey derives the numeric account id owning the given public key:
// the first 8 bytes of its sha256 digest, little endian.
func IDFromPublicKey(publicKey []byte) uint64 {
	digest := sha256.Sum256(publicKey)
	return binary.LittleEndian.Uint64(digest[:8])
}

// Encode returns the Reed-Solomon address of id, e.g. "S-K37B-9V85-FB95-793HN".
func Encode(id uint64, prefix string) string {
	digits10 := []byte(strconv.FormatUint(id, 10))
	for i := range digits10 {
		digits10[i] -= '0'
	}

	var codeword [codewordLength]int
	length := len(digits10)
	n := 0
	for {
		newLength, digit32 := 0, 0
		for i := 0; i < length; i++ {
			digit32 = digit32*10 + int(digits10[i])
			if digit32 >= 32 {
				digits10[newLength] = byte(digit32 >> 5)
				digit32 &= 31
				newLength++
			} else if newLength > 0 {
				digits10[newLength] = 0
				newLength++
			}
		}
		length = newLength
		codeword[n] = digit32
		n++
		if length == 0 {
			break
		}
	}

	var p [4]int
	for i := base32Length - 1; i >= 0; i-- {
		fb := codeword[i] ^ p[3]
		p[3] = p[2] ^ gmult(30, fb)
		p[2] = p[1] ^ gmult(6, fb)
		p[1] = p[0] ^ gmult(9, fb)
		p[0] = gmult(17, fb)
	}
	copy(codeword[base32Length:], p[:])

	var sb strings.Builder
	if prefix != "" {
		sb.WriteString(prefix)
		sb.WriteByte('-')
	}
	for i := 0; i < codewordLength; i++ {
		sb.WriteByte(alphabet[codeword[codewordMap[i]]])
		if i&3 == 3 && i < base32Length {
			sb.WriteByte('-')
		}
	}
	return sb.String()
}

// Decode parses a Reed-Solomon address, with or without prefix, and returns
// the numeric account id.
func Decode(addr string) (uint64, error) {
	body, err := stripPrefix(strings.ToUpper(strings.TrimSpace(addr)))
	if err != nil {
		return 0, err
	}

	var codeword [codewordLength]int
	n := 0
	for _, c := range body {
		pos := strings.IndexRune(alphabet, c)
		if pos < 0 {
			continue
		}
		if n >= codewordLength {
			return 0, ErrInvalidCodeword
		}
		codeword[codewordMap[n]] = pos
		n++
	}
	if n != codewordLength || !isCodewordValid(codeword) {
		return 0, ErrInvalidCodeword
	}

	length := base32Length
	digits32 := make([]int, length)
	for i := 0; i < length; i++ {
		digits32[i] = codeword[length-i-1]
	}

	var plain []byte
	for {
		newLength, digit10 := 0, 0
		for i := 0; i < length; i++ {
			digit10 = digit10*32 + digits32[i]
			if digit10 >= 10 {
				digits32[newLength] = digit10 / 10
				digit10 %= 10
				newLength++
			} else if newLength > 0 {
				digits32[newLength] = 0
				newLength++
			}
		}
		length = newLength
		plain = append(plain, byte(digit10)+'0')
		if length == 0 {
			break
		}
	}
	for i, j := 0, len(plain)-1; i < j; i, j = i+1, j-1 {
		plain[i], plain[j] = plain[j], plain[i]
	}

	id, err := strconv.ParseUint(string(plain), 10, 64)
	if err != nil {
		return 0, ErrInvalidCodeword
	}
	return id, nil
}

// Parse accepts either a numeric account id or a Reed-Solomon address.
func Parse(s string) (uint64, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, ErrInvalidAddress
	}
	if isDigits(s) {
		id, err := strconv.ParseUint(s, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
		}
		return id, nil
	}
	id, err := Decode(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s", ErrInvalidAddress, err)
	}
	return id, nil
}

func IsValid(s string) bool {
	_, err := Parse(s)
	return err == nil
}

// Equal reports whether both strings denote the same account.
func Equal(a, b string) bool {
	idA, err := Parse(a)
	if err != nil {
		return false
	}
	idB, err := Parse(b)
	if err != nil {
		return false
	}
	return idA == idB
}

func stripPrefix(addr string) (string, error) {
	parts := strings.Split(addr, "-")
	switch len(parts) {
	case 4:
	case 5:
		if parts[0] == "" || !isLetters(parts[0]) {
			return "", ErrInvalidAddress
		}
		parts = parts[1:]
	default:
		return "", ErrInvalidAddress
	}
	for i, part := range parts {
		want := 4
		if i == 3 {
			want = 5
		}
		if len(part) != want {
			return "", ErrInvalidAddress
		}
	}
	return strings.Join(parts, ""), nil
}

func isCodewordValid(codeword [codewordLength]int) bool {
	sum := 0
	for i := 1; i < 5; i++ {
		t := 0
		for j := 0; j < 31; j++ {
			if j > 12 && j < 27 {
				continue
			}
			pos := j
			if j > 26 {
				pos -= 14
			}
			t ^= gmult(codeword[pos], gexp[(i*j)%31])
		}
		sum |= t
	}
	return sum == 0
}

func gmult(a, b int) int {
	if a == 0 || b == 0 {
		return 0
	}
	return gexp[(glog[a]+glog[b])%31]
}

func isDigits(s string) bool {
	for _, c := range s {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}

func isLetters(s string) bool {
	for _, c := range s {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}
