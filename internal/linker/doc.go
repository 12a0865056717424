// Package linker relates newly created Items to prior Items and
// promotes location clusters to Projects.
package linker
