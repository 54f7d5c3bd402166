package depgraph

import (
	"encoding/binary"
	"fmt"
	"strings"
)

const classMagic = 0xCAFEBABE

// Constant pool tags, JVM spec table 4.4-A.
const (
	tagUtf8               = 1
	tagInteger            = 3
	tagFloat              = 4
	tagLong               = 5
	tagDouble             = 6
	tagClass              = 7
	tagString             = 8
	tagFieldref           = 9
	tagMethodref          = 10
	tagInterfaceMethodref = 11
	tagNameAndType        = 12
	tagMethodHandle       = 15
	tagMethodType         = 16
	tagDynamic            = 17
	tagInvokeDynamic      = 18
	tagModule             = 19
	tagPackage            = 20
)

// BinaryClassName recovers the fully qualified binary name (dot separated)
// from raw class file bytes. It walks the constant pool header only,
// skipping method bodies, attributes, and everything past this_class,
// which keeps it cheap enough to run on every compiled item.
func BinaryClassName(data []byte) (string, error) {
	r := &byteReader{data: data}

	magic, err := r.u4()
	if err != nil {
		return "", err
	}
	if magic != classMagic {
		return "", fmt.Errorf("not a class file: magic %#x", magic)
	}
	if err := r.skip(4); err != nil { // minor and major version
		return "", err
	}

	count, err := r.u2()
	if err != nil {
		return "", err
	}

	utf8s := make(map[uint16]string)
	classNames := make(map[uint16]uint16)

	// Entries are indexed from 1; longs and doubles occupy two slots.
	for i := uint16(1); i < count; i++ {
		tag, err := r.u1()
		if err != nil {
			return "", err
		}
		switch tag {
		case tagUtf8:
			n, err := r.u2()
			if err != nil {
				return "", err
			}
			raw, err := r.bytes(int(n))
			if err != nil {
				return "", err
			}
			utf8s[i] = string(raw)
		case tagClass:
			nameIndex, err := r.u2()
			if err != nil {
				return "", err
			}
			classNames[i] = nameIndex
		case tagString, tagMethodType, tagModule, tagPackage:
			err = r.skip(2)
		case tagMethodHandle:
			err = r.skip(3)
		case tagInteger, tagFloat, tagFieldref, tagMethodref, tagInterfaceMethodref, tagNameAndType, tagDynamic, tagInvokeDynamic:
			err = r.skip(4)
		case tagLong, tagDouble:
			err = r.skip(8)
			i++
		default:
			return "", fmt.Errorf("unknown constant pool tag %d at entry %d", tag, i)
		}
		if err != nil {
			return "", err
		}
	}

	if err := r.skip(2); err != nil { // access_flags
		return "", err
	}
	thisClass, err := r.u2()
	if err != nil {
		return "", err
	}

	nameIndex, ok := classNames[thisClass]
	if !ok {
		return "", fmt.Errorf("this_class %d is not a class entry", thisClass)
	}
	name, ok := utf8s[nameIndex]
	if !ok {
		return "", fmt.Errorf("class name index %d is not a utf8 entry", nameIndex)
	}
	return strings.ReplaceAll(name, "/", "."), nil
}

// byteReader is a bounds-checked cursor over class file bytes.
type byteReader struct {
	data []byte
	off  int
}

func (r *byteReader) u1() (byte, error) {
	if r.off+1 > len(r.data) {
		return 0, errTruncated(r.off)
	}
	b := r.data[r.off]
	r.off++
	return b, nil
}

func (r *byteReader) u2() (uint16, error) {
	if r.off+2 > len(r.data) {
		return 0, errTruncated(r.off)
	}
	v := binary.BigEndian.Uint16(r.data[r.off:])
	r.off += 2
	return v, nil
}

func (r *byteReader) u4() (uint32, error) {
	if r.off+4 > len(r.data) {
		return 0, errTruncated(r.off)
	}
	v := binary.BigEndian.Uint32(r.data[r.off:])
	r.off += 4
	return v, nil
}

func (r *byteReader) skip(n int) error {
	if r.off+n > len(r.data) {
		return errTruncated(r.off)
	}
	r.off += n
	return nil
}

func (r *byteReader) bytes(n int) ([]byte, error) {
	if r.off+n > len(r.data) {
		return nil, errTruncated(r.off)
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b, nil
}

func errTruncated(off int) error {
	return fmt.Errorf("class file truncated at offset %d", off)
}
