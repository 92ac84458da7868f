/*
Package config loads ledgerstored's daemon configuration from the
environment: a handful of twelve-factor knobs, validated once at
init, with malformed values treated as fatal rather than silently
defaulted.

SUBSCRIPTION_THROTTLE_INTERVAL in particular must fail loudly when
malformed per the throttle contract events.Throttler implements;
Load returns an error instead of panicking; cmd/ledgerstored returns
it from its serve command, which prints it and exits non-zero.
*/
package config
