/*
Package ports defines the driven ports (interfaces) used by the converters.

These interfaces decouple conversions from the backends that keep state
between runs.

# Key Interfaces

  - SequenceStore: persists the next row ID of every CSV table under a key,
    so that several conversions can number their rows without overlap.
  - Locker: provides distributed locking around a load/convert/save cycle.
*/
package ports
