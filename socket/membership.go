package socket

import (
	"net"

	"golang.org/x/net/ipv4"
	"golang.org/x/net/ipv6"
)

// Membership joins and leaves multicast groups on a bound connection.
type Membership interface {
	Join(conn *net.UDPConn, ifi *net.Interface, group net.IP) error
	Leave(conn *net.UDPConn, ifi *net.Interface, group net.IP) error
}

// PacketMembership is the default Membership. It applies TTL and loopback
// settings on every successful join.
type PacketMembership struct {
	Loopback *bool
	TTL      int
}

// Join adds conn to group on ifi. A nil ifi lets the OS pick.
func (m PacketMembership) Join(conn *net.UDPConn, ifi *net.Interface, group net.IP) error {
	gaddr := &net.UDPAddr{IP: group}

	if group.To4() != nil {
		p := ipv4.NewPacketConn(conn)
		if err := p.JoinGroup(ifi, gaddr); err != nil {
			return err
		}
		if ifi != nil {
			if err := p.SetMulticastInterface(ifi); err != nil {
				return err
			}
		}
		if m.TTL > 0 {
			if err := p.SetMulticastTTL(m.TTL); err != nil {
				return err
			}
		}
		if m.Loopback != nil {
			if err := p.SetMulticastLoopback(*m.Loopback); err != nil {
				return err
			}
		}
		return nil
	}

	p := ipv6.NewPacketConn(conn)
	if err := p.JoinGroup(ifi, gaddr); err != nil {
		return err
	}
	if ifi != nil {
		if err := p.SetMulticastInterface(ifi); err != nil {
			return err
		}
	}
	if m.TTL > 0 {
		if err := p.SetMulticastHopLimit(m.TTL); err != nil {
			return err
		}
	}
	if m.Loopback != nil {
		if err := p.SetMulticastLoopback(*m.Loopback); err != nil {
			return err
		}
	}
	return nil
}

// Leave removes conn from group on ifi.
func (m PacketMembership) Leave(conn *net.UDPConn, ifi *net.Interface, group net.IP) error {
	gaddr := &net.UDPAddr{IP: group}
	if group.To4() != nil {
		return ipv4.NewPacketConn(conn).LeaveGroup(ifi, gaddr)
	}
	return ipv6.NewPacketConn(conn).LeaveGroup(ifi, gaddr)
}
