// Command blurry queues research videos, redacts faces in them, and files
// the untouched and redacted copies into the export tree.
//
// Typical session:
//
//	blurry config init
//	blurry queue add walk.mov --site C1 --subject 7 --freezer FR --session ses01 \
//	    --medication on --trial stwalk --plane front
//	blurry run
//
// The queue lives in SQLite under the state directory, so queue commands and
// a running batch can be issued from separate shells. Queue edits are
// rejected while a batch is running.
package main
