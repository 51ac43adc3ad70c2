package upstream

import (
	"errors"
	"net/url"
)

// StripURL drops the request URL from a transport error. Upstream URLs carry
// credentials (the bot token in the path, the weather appid in the query).
func StripURL(err error) error {
	var uerr *url.Error
	if errors.As(err, &uerr) {
		return uerr.Err
	}
	return err
}
