// Package command turns natural-language text into device actions.
//
// The Interpreter walks a fixed, ordered rule list and stops at the first
// rule that fully resolves: keyword phrases select a device type, the first
// digit run in the text supplies a temperature, and the earliest-registered
// device of the matched type is the target. Rules that need a number but
// find none decline and let later rules try. Anything unmatched yields
// ErrUnrecognized with a fixed user-facing message.
//
// The Recognizer interface abstracts where command text comes from; the
// ScriptedRecognizer cycles a configured phrase list deterministically.
package command
