// SPDX-License-Identifier: GPL-3.0-or-later

/*
Package web contains HTTP request and client configurations.
HTTPConfig embeds both of them; instance descriptors derive one per broker node
so that every task talks to the management API with the same set of options.
*/
package web
