// SPDX-License-Identifier: GPL-3.0-or-later

package credential

import "errors"

var errNoDecrypter = errors.New("encrypted credential set but no decrypter is configured")
