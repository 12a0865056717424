// Package gmail reads the watched inbox label. It lists unprocessed
// messages, decodes bodies and attachments into flat Email values, and
// labels messages once the pipeline is done with them.
package gmail
