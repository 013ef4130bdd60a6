// Package mqtt wraps paho.mqtt.golang for the hearthside topic namespace.
//
// The Client handles connection lifecycle, auto-reconnect with subscription
// restoration, and retained online/offline status including a Last Will for
// crash detection. Topics centralises topic construction so the namespace
// layout lives in one place.
package mqtt
