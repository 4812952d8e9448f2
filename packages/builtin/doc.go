// Package builtin provides helper functions made available to script hooks.
//
// Available functions:
//   - uuid(): Generate a random UUID v4
//   - timestamp(), timestampMs(): Current Unix time in seconds / milliseconds
//   - isoNow(): Current UTC time in RFC 3339
//   - today(layout?): Current UTC date, Go layout, default 2006-01-02
//   - random(min, max): Random integer in range
//   - randomString(length), randomEmail()
//   - base64(value), base64Decode(value), md5(value), sha256(value)
//   - urlEncode(value), urlDecode(value), json(value)
//
// Functions never fail; bad input yields an empty string.
package builtin
