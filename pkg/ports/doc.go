/*
Package ports defines the driven ports (interfaces) the vehicle depends on.

# Key Interfaces

  - RecordStore: persists driving records captured by the tub writer.
  - Locker: grants exclusive ownership of a tub to one writer.
*/
package ports
