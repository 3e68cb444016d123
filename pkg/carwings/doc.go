// Package carwings is a client for the carwings telematics web API used by
// Nissan vehicles.
//
// A Session logs in with a region code, a username and a password. The
// password is Blowfish encrypted with a key issued by the initial handshake.
// Known region codes are NNA (USA), NE (Europe), NCI (Canada), NMA (Australia)
// and NML (Japan); others are sent unchecked.
//
// Vehicle operations are asynchronous. A start call returns a result key:
//
//	{"status":200,"vin":"1ABCDEFG2HIJKLM3N","resultKey":"1234567890..."}
//
// and the matching poll call reports responseFlag "0" until the vehicle has
// answered, then "1" together with the result:
//
//	{"status":200,"responseFlag":"1","operationResult":"START_BATTERY","hvacStatus":"ON"}
//
// An operationResult of ELECTRIC_WAVE_ABNORMAL means the vehicle could not be
// reached. The session never sleeps or retries; callers drive the poll loop,
// optionally with Wait.
package carwings
