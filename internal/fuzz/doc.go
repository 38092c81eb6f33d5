// Package fuzztests houses Go fuzz harnesses for the text inputs reify
// accepts: assembly sources, marker arguments and type expressions. The
// harnesses guard against panics and hangs on arbitrary bytes.
package fuzztests
