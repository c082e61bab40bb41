package jwt

import "errors"

// Taxonomía de errores de emisión/verificación. Se matchean con errors.Is y
// se reportan hacia afuera de forma genérica (re-authenticate) sin distinguir
// retired vs malformed vs expired, para no filtrar información.
var (
	// ErrConfiguration: material de clave faltante/inválido o algoritmo no
	// soportado. Fatal en el momento de la llamada.
	ErrConfiguration = errors.New("key_configuration_invalid")

	// ErrExpiredSignature: token vencido, o firmado por una clave cuyo grace
	// window de retiro ya pasó. El caller debe re-autenticar.
	ErrExpiredSignature = errors.New("expired_signature")

	// ErrMalformedToken: token estructuralmente inválido o firma que no
	// verifica. Reintentar el mismo token no lo resuelve.
	ErrMalformedToken = errors.New("malformed_token")
)
