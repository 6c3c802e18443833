// Package vm models the target of the Sophia code generator.
//
// This package contains:
//   - Instruction, label and comment lines making up a method body
//   - Class units and the text writer/parser for the assembler format
//   - A verifier run over each method before it is written
//   - A reference interpreter with native models of the runtime support
//     classes (Integer, Boolean, String, ArrayList, List, Fptr, System.out)
package vm
