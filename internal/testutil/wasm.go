// Package testutil holds helpers shared by tests across packages.
package testutil

// Minimal hand-assembled WebAssembly binaries. Every section is shorter than
// 128 bytes so sizes fit in a single LEB128 byte.

// WasmModule returns a module made of the given sections.
func WasmModule(sections ...[]byte) []byte {
	bin := []byte{0x00, 0x61, 0x73, 0x6d, 0x01, 0x00, 0x00, 0x00}
	for _, s := range sections {
		bin = append(bin, s...)
	}
	return bin
}

func wasmSection(id byte, content ...byte) []byte {
	return append([]byte{id, byte(len(content))}, content...)
}

func wasmName(name string) []byte {
	return append([]byte{byte(len(name))}, name...)
}

func concat(parts ...[]byte) []byte {
	var out []byte
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

// StubParserModule exports memory, alloc (always 1024) and parse, which
// ignores its input and returns doc stored at offset 0.
// doc must be shorter than 64 bytes.
func StubParserModule(doc string) []byte {
	if len(doc) >= 64 {
		panic("testutil: stub document must be shorter than 64 bytes")
	}
	types := wasmSection(1,
		0x02,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e, // (i32, i32) -> i64
	)
	funcs := wasmSection(3, 0x02, 0x00, 0x01)
	memory := wasmSection(5, 0x01, 0x00, 0x01)
	exports := wasmSection(7, concat(
		[]byte{0x03},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("alloc"), []byte{0x00, 0x00},
		wasmName("parse"), []byte{0x00, 0x01},
	)...)
	code := wasmSection(10,
		0x02,
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b, // i32.const 1024
		0x04, 0x00, 0x42, byte(len(doc)), 0x0b, // i64.const len(doc)
	)
	data := wasmSection(11, concat(
		[]byte{0x01, 0x00, 0x41, 0x00, 0x0b, byte(len(doc))},
		[]byte(doc),
	)...)
	return WasmModule(types, funcs, memory, exports, code, data)
}

// ParseOnlyModule exports parse and memory but no alloc.
func ParseOnlyModule() []byte {
	types := wasmSection(1, 0x01, 0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e)
	funcs := wasmSection(3, 0x01, 0x00)
	memory := wasmSection(5, 0x01, 0x00, 0x01)
	exports := wasmSection(7, concat(
		[]byte{0x02},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("parse"), []byte{0x00, 0x00},
	)...)
	code := wasmSection(10, 0x01, 0x04, 0x00, 0x42, 0x00, 0x0b)
	return WasmModule(types, funcs, memory, exports, code)
}

// TrappingReactorModule exports an _initialize that hits unreachable.
func TrappingReactorModule() []byte {
	types := wasmSection(1, 0x01, 0x60, 0x00, 0x00)
	funcs := wasmSection(3, 0x01, 0x00)
	exports := wasmSection(7, concat(
		[]byte{0x01},
		wasmName("_initialize"), []byte{0x00, 0x00},
	)...)
	code := wasmSection(10, 0x01, 0x03, 0x00, 0x00, 0x0b)
	return WasmModule(types, funcs, exports, code)
}

// EchoModule exports memory, alloc (always 1024) and parse, which returns
// its input unchanged. It has no free export.
func EchoModule() []byte {
	types := wasmSection(1,
		0x02,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e, // (i32, i32) -> i64
	)
	funcs := wasmSection(3, 0x02, 0x00, 0x01)
	memory := wasmSection(5, 0x01, 0x00, 0x01)
	exports := wasmSection(7, concat(
		[]byte{0x03},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("alloc"), []byte{0x00, 0x00},
		wasmName("parse"), []byte{0x00, 0x01},
	)...)
	code := wasmSection(10,
		0x02,
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b, // i32.const 1024
		0x0c, 0x00,
		0x20, 0x00, 0xad, 0x42, 0x20, 0x86, // i64(ptr) << 32
		0x20, 0x01, 0xad, 0x84, // | i64(len)
		0x0b,
	)
	return WasmModule(types, funcs, memory, exports, code)
}

// FreeCountingModule exports memory, alloc (always 1024), parse and free.
// free increments an ASCII digit kept at address 8, starting at '0', and
// parse ignores its input and returns that digit. Each result therefore
// reports how many times free ran before the call.
func FreeCountingModule() []byte {
	types := wasmSection(1,
		0x03,
		0x60, 0x01, 0x7f, 0x01, 0x7f, // (i32) -> i32
		0x60, 0x02, 0x7f, 0x7f, 0x01, 0x7e, // (i32, i32) -> i64
		0x60, 0x01, 0x7f, 0x00, // (i32) -> ()
	)
	funcs := wasmSection(3, 0x03, 0x00, 0x01, 0x02)
	memory := wasmSection(5, 0x01, 0x00, 0x01)
	exports := wasmSection(7, concat(
		[]byte{0x04},
		wasmName("memory"), []byte{0x02, 0x00},
		wasmName("alloc"), []byte{0x00, 0x00},
		wasmName("parse"), []byte{0x00, 0x01},
		wasmName("free"), []byte{0x00, 0x02},
	)...)
	code := wasmSection(10,
		0x03,
		0x05, 0x00, 0x41, 0x80, 0x08, 0x0b, // i32.const 1024
		0x09, 0x00, 0x42, 0x81, 0x80, 0x80, 0x80, 0x80, 0x01, 0x0b, // i64.const 8<<32 | 1
		0x0f, 0x00,
		0x41, 0x00, // address
		0x41, 0x00, 0x2d, 0x00, 0x08, // i32.load8_u offset=8
		0x41, 0x01, 0x6a, // + 1
		0x3a, 0x00, 0x08, // i32.store8 offset=8
		0x0b,
	)
	data := wasmSection(11, 0x01, 0x00, 0x41, 0x08, 0x0b, 0x01, '0')
	return WasmModule(types, funcs, memory, exports, code, data)
}
