package lobby

import "github.com/mcoot/werewolf/internal/transport"

// join is issued once a connection's Connect has been read
type join struct {
	session *transport.Session
	name    string
	reply   chan<- error
}

// seal closes the join window if at least min players are living
type seal struct {
	min   int
	reply chan<- error
}
